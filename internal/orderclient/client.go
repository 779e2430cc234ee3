package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/deuce-szn/BiteHub/internal/order"
)

const tracerName = "github.com/deuce-szn/BiteHub/internal/orderclient"

// StatusError is returned for responses outside 2xx that have no more
// specific meaning.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client talks to a remote order service over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tracer     trace.Tracer
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse order service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("order service url %q must be absolute", baseURL)
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (c *Client) TrackOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var o order.Order
	err := c.do(ctx, "track-order", http.MethodGet, "/api/orders/track/"+url.PathEscape(orderID), nil, &o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateFoodStatus(ctx context.Context, orderID string, status order.FoodStatus) (*order.Order, error) {
	body := struct {
		FoodStatus order.FoodStatus `json:"foodStatus"`
	}{FoodStatus: status}

	var o order.Order
	err := c.do(ctx, "update-food-status", http.MethodPut, "/api/orders/"+url.PathEscape(orderID)+"/food-status", body, &o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	target := c.baseURL.String() + path

	ctx, span := c.tracer.Start(ctx, "orderclient."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target),
	)

	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fail(span, fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fail(span, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(span, fmt.Errorf("%s %s: %w", method, target, err))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(span, statusErr(method, target, resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(span, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func statusErr(method, target string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", order.ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", order.ErrInvalidFoodStatus, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", order.ErrInvalidTransition, msg)
	}
	return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: msg}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
