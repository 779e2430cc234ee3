package tracking

import (
	"errors"

	"github.com/deuce-szn/BiteHub/internal/order"
)

var (
	ErrClosed            = errors.New("tracking view closed")
	ErrNavigatedAway     = errors.New("tracking view left after failed fetch")
	ErrOrderUnavailable  = errors.New("order unavailable")
	ErrStaleResponse     = errors.New("response superseded")
	ErrPickupUnavailable = errors.New("order is not ready for pickup")
	ErrPickupInProgress  = errors.New("pickup confirmation already in progress")
	ErrPickupFailed      = errors.New("pickup confirmation failed")
	ErrRatingNotOpen     = errors.New("rating is not open")
)

type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseNotFound      Phase = "not_found"
	PhaseLoading       Phase = "loading"
	PhaseLoaded        Phase = "loaded"
	PhaseFailed        Phase = "failed"
)

// Overlay is what is drawn on top of a loaded order. Only one is shown at a time.
type Overlay string

const (
	OverlayNone     Overlay = "none"
	OverlayRating   Overlay = "rating"
	OverlayThankYou Overlay = "thank_you"
)

// View is a point-in-time copy of the controller state.
type View struct {
	OrderID       string       `json:"order_id"`
	Phase         Phase        `json:"phase"`
	Order         *order.Order `json:"order,omitempty"`
	Overlay       Overlay      `json:"overlay"`
	Rating        int          `json:"rating"`
	PickupPending bool         `json:"pickup_pending"`
	PickupError   string       `json:"pickup_error,omitempty"`
}

func (v View) IsRatingOpen() bool {
	return v.Overlay == OverlayRating
}

func (v View) IsThankYouVisible() bool {
	return v.Overlay == OverlayThankYou
}

func (v View) CanConfirmPickup() bool {
	return v.Phase == PhaseLoaded && v.Order != nil && v.Order.ReadyForPickup()
}

func (v View) ShowPaymentPrompt() bool {
	return v.Phase == PhaseLoaded && v.Order != nil && v.Order.PaymentDue()
}

func (v View) ShowMap() bool {
	return v.Phase == PhaseLoaded && v.Order != nil && v.Order.ShowsLocation()
}

type state struct {
	phase         Phase
	order         *order.Order
	overlay       Overlay
	rating        int
	pickupPending bool
	pickupErr     string
}

func newState(phase Phase) state {
	return state{phase: phase, overlay: OverlayNone}
}
