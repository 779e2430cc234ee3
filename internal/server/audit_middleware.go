package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// maxAuditBody caps how much of a request or response body is kept.
const maxAuditBody = 4096

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
	buffer     bytes.Buffer
}

func newResponseWriterWrapper(w http.ResponseWriter) *responseWriterWrapper {
	return &responseWriterWrapper{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if room := maxAuditBody - w.buffer.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.buffer.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

// auditLogMiddleware runs inside the router so the matched route name and
// path variables are available.
func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := routeName(r)
		if _, skip := unaudited[name]; skip {
			next.ServeHTTP(w, r)
			return
		}

		vars := mux.Vars(r)
		entry := AuditLogEntry{
			Timestamp: timeNow(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   name,
			SessionID: vars["sid"],
			OrderID:   vars["id"],
		}

		if r.Body != nil {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
			if len(requestBody) > maxAuditBody {
				requestBody = requestBody[:maxAuditBody]
			}
			entry.Request = string(requestBody)

			if name == routeUpdateFoodStatus && s.orders != nil {
				var statusRequest struct {
					FoodStatus string `json:"foodStatus"`
				}
				if err := json.Unmarshal(requestBody, &statusRequest); err == nil {
					if o, err := s.orders.TrackOrder(r.Context(), entry.OrderID); err == nil {
						entry.OldStatus = string(o.FoodStatus)
						entry.NewStatus = statusRequest.FoodStatus
					}
				}
			}
		}

		wrw := newResponseWriterWrapper(w)

		next.ServeHTTP(wrw, r)

		entry.StatusCode = wrw.statusCode
		entry.Response = wrw.buffer.String()

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
		return route.GetName()
	}
	return "unknown"
}
