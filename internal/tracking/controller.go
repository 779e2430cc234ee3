package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deuce-szn/BiteHub/internal/metrics"
	"github.com/deuce-szn/BiteHub/internal/order"
)

const DefaultThankYouDuration = 3 * time.Second

type Option func(*Controller)

func WithThankYouDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.ack = newAckTimer(d)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller drives one order tracking view: it fetches the order when the
// view is entered, confirms pickup, captures a rating and shows a short
// thank-you acknowledgment.
//
// All state lives behind mu. Calls to the fetcher and mutator are made
// without the lock; their results are applied only if no newer Initiate or
// Close happened in the meantime.
type Controller struct {
	fetcher   OrderFetcher
	mutator   StatusMutator
	navigator Navigator
	logger    *zap.Logger
	ack       *ackTimer

	mu      sync.Mutex
	orderID string
	gen     uint64
	ackSeq  uint64
	closed  bool
	st      state
}

func New(fetcher OrderFetcher, mutator StatusMutator, navigator Navigator, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		mutator:   mutator,
		navigator: navigator,
		logger:    zap.NewNop(),
		ack:       newAckTimer(DefaultThankYouDuration),
		st:        newState(PhaseUninitialized),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate loads the order the view was entered for. Calling it again with the
// same identifier does nothing; a different identifier starts over and makes
// any response still in flight for the old one stale.
func (c *Controller) Initiate(ctx context.Context, orderID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.st.phase == PhaseFailed {
		c.mu.Unlock()
		return ErrNavigatedAway
	}
	if orderID == "" {
		c.resetLocked("", PhaseNotFound)
		c.mu.Unlock()
		return nil
	}
	if orderID == c.orderID && c.st.phase != PhaseUninitialized && c.st.phase != PhaseNotFound {
		c.mu.Unlock()
		return nil
	}
	gen := c.resetLocked(orderID, PhaseLoading)
	c.mu.Unlock()

	log := c.logger.With(zap.String("order_id", orderID))
	log.Debug("fetching order")

	o, err := c.fetcher.TrackOrder(ctx, orderID)
	if err == nil && o == nil {
		err = order.ErrNotFound
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		log.Debug("discarding stale fetch response")
		return ErrStaleResponse
	}
	if err != nil {
		c.st = newState(PhaseFailed)
		c.mu.Unlock()

		metrics.OrderFetchFailuresTotal.Inc()
		log.Warn("failed to fetch order, leaving to order list", zap.Error(err))
		c.navigator.LeaveToOrderList()
		return fmt.Errorf("%w: %w", ErrOrderUnavailable, err)
	}
	c.st.phase = PhaseLoaded
	c.st.order = o.Clone()
	c.mu.Unlock()

	log.Debug("order loaded", zap.String("food_status", string(o.FoodStatus)))
	return nil
}

// ConfirmPickup asks the order service to mark the food as picked up. It is
// only available while the loaded order is ready for pickup. On success the
// acknowledged snapshot replaces the stored one and the rating opens.
func (c *Controller) ConfirmPickup(ctx context.Context) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.st.phase != PhaseLoaded || c.st.order == nil || !c.st.order.ReadyForPickup() {
		c.mu.Unlock()
		return ErrPickupUnavailable
	}
	if c.st.pickupPending {
		c.mu.Unlock()
		return ErrPickupInProgress
	}
	c.st.pickupPending = true
	c.st.pickupErr = ""
	gen := c.gen
	orderID := c.st.order.ID
	c.mu.Unlock()

	log := c.logger.With(zap.String("order_id", orderID))

	updated, err := c.mutator.UpdateFoodStatus(ctx, orderID, order.FoodStatusPickedUp)
	if err == nil && updated == nil {
		err = order.ErrNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		log.Debug("discarding stale pickup response")
		return ErrStaleResponse
	}
	c.st.pickupPending = false
	if err != nil {
		c.st.pickupErr = err.Error()
		metrics.PickupFailuresTotal.Inc()
		log.Error("failed to update food status", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPickupFailed, err)
	}

	c.st.order = updated.Clone()
	c.cancelAckLocked()
	c.st.overlay = OverlayRating
	c.st.rating = 0
	metrics.PickupsConfirmedTotal.Inc()
	log.Info("pickup confirmed", zap.String("food_status", string(updated.FoodStatus)))
	return nil
}

// DismissRating closes the rating without submitting it; the value is dropped.
func (c *Controller) DismissRating() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ratingOpenLocked(); err != nil {
		return err
	}
	c.st.overlay = OverlayNone
	c.st.rating = 0
	return nil
}

func (c *Controller) SetRatingValue(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ratingOpenLocked(); err != nil {
		return err
	}
	c.st.rating = value
	return nil
}

// SubmitRating closes the rating and shows the thank-you acknowledgment, which
// hides itself when the timer expires. The value stays with the view; zero is
// accepted.
func (c *Controller) SubmitRating() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ratingOpenLocked(); err != nil {
		return 0, err
	}
	value := c.st.rating
	c.st.overlay = OverlayThankYou

	c.ackSeq++
	seq := c.ackSeq
	c.ack.arm(func() { c.expireThankYou(seq) })

	metrics.RatingsSubmittedTotal.Inc()
	c.logger.Debug("rating submitted", zap.String("order_id", c.orderID), zap.Int("rating", value))
	return value, nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		OrderID:       c.orderID,
		Phase:         c.st.phase,
		Order:         c.st.order.Clone(),
		Overlay:       c.st.overlay,
		Rating:        c.st.rating,
		PickupPending: c.st.pickupPending,
		PickupError:   c.st.pickupErr,
	}
}

// Close tears the view down: the acknowledgment timer is cancelled and
// responses still in flight are discarded. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.cancelAckLocked()
}

func (c *Controller) expireThankYou(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.ackSeq || c.st.overlay != OverlayThankYou {
		return
	}
	c.st.overlay = OverlayNone
}

func (c *Controller) resetLocked(orderID string, phase Phase) uint64 {
	c.cancelAckLocked()
	c.gen++
	c.orderID = orderID
	c.st = newState(phase)
	return c.gen
}

func (c *Controller) cancelAckLocked() {
	c.ackSeq++
	c.ack.stop()
}

func (c *Controller) usableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.st.phase == PhaseFailed {
		return ErrNavigatedAway
	}
	return nil
}

func (c *Controller) ratingOpenLocked() error {
	if err := c.usableLocked(); err != nil {
		return err
	}
	if c.st.overlay != OverlayRating {
		return ErrRatingNotOpen
	}
	return nil
}
