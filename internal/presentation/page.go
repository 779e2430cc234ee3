package presentation

import (
	"fmt"

	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/tracking"
)

const (
	DateLayout    = "January 2, 2006 15:04"
	MaxRating     = 5
	PaymentPath   = "/payment"
	HomePath      = "/"
	pickupLabel   = "Mark as Picked Up"
	paymentLabel  = "Go To Payment"
	ratingTitle   = "Rate Your Food"
	thankYouText  = "Thank you for your feedback!"
	notFoundTitle = "Order Not Found"
	notFoundLink  = "Go To Home Page"
)

type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type NotFound struct {
	Title string `json:"title"`
	Home  Link   `json:"home"`
}

type Header struct {
	Date       string `json:"date"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	State      string `json:"state"`
	FoodStatus string `json:"food_status"`
	FoodReady  bool   `json:"food_ready"`
	PaymentID  string `json:"payment_id,omitempty"`
}

type ItemLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Subtotal string `json:"subtotal"`
}

type Items struct {
	Lines []ItemLine `json:"lines"`
	Total string     `json:"total"`
}

type Action struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

type Map struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type RatingModal struct {
	Title string `json:"title"`
	Value int    `json:"value"`
	Max   int    `json:"max"`
}

// Page is the rendered tracking view. Regions that do not apply are nil.
type Page struct {
	Redirect    string       `json:"redirect,omitempty"`
	NotFound    *NotFound    `json:"not_found,omitempty"`
	Loading     bool         `json:"loading,omitempty"`
	Title       string       `json:"title,omitempty"`
	Header      *Header      `json:"header,omitempty"`
	Pickup      *Action      `json:"pickup,omitempty"`
	PickupError string       `json:"pickup_error,omitempty"`
	Items       *Items       `json:"items,omitempty"`
	Payment     *Link        `json:"payment,omitempty"`
	Map         *Map         `json:"map,omitempty"`
	Rating      *RatingModal `json:"rating,omitempty"`
	Toast       string       `json:"toast,omitempty"`
}

// Render maps a controller view to page regions. redirect, when set, wins
// over everything else.
func Render(v tracking.View, redirect string) Page {
	if redirect != "" {
		return Page{Redirect: redirect}
	}

	switch v.Phase {
	case tracking.PhaseNotFound:
		return Page{NotFound: &NotFound{
			Title: notFoundTitle,
			Home:  Link{Label: notFoundLink, Href: HomePath},
		}}
	case tracking.PhaseLoaded:
	default:
		return Page{Loading: true}
	}
	if v.Order == nil {
		return Page{Loading: true}
	}

	o := v.Order
	p := Page{
		Title:       fmt.Sprintf("Order #%s", o.ID),
		Header:      renderHeader(o),
		Items:       renderItems(o),
		PickupError: v.PickupError,
	}
	if v.CanConfirmPickup() {
		p.Pickup = &Action{Label: pickupLabel, Disabled: v.PickupPending}
	}
	if v.ShowPaymentPrompt() {
		p.Payment = &Link{Label: paymentLabel, Href: PaymentPath}
	}
	if v.ShowMap() {
		p.Map = &Map{Lat: o.Location.Lat, Lng: o.Location.Lng}
	}
	if v.IsRatingOpen() {
		p.Rating = &RatingModal{Title: ratingTitle, Value: v.Rating, Max: MaxRating}
	}
	if v.IsThankYouVisible() {
		p.Toast = thankYouText
	}
	return p
}

func renderHeader(o *order.Order) *Header {
	h := &Header{
		Name:       o.Name,
		Address:    o.Address,
		State:      string(o.Status),
		FoodStatus: string(o.FoodStatus),
		FoodReady:  o.ReadyForPickup(),
		PaymentID:  o.PaymentID,
	}
	if !o.CreatedAt.IsZero() {
		h.Date = o.CreatedAt.Format(DateLayout)
	}
	return h
}

func renderItems(o *order.Order) *Items {
	items := &Items{
		Lines: make([]ItemLine, 0, len(o.Items)),
		Total: o.Total().StringFixed(2),
	}
	for _, it := range o.Items {
		items.Lines = append(items.Lines, ItemLine{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price.StringFixed(2),
			Subtotal: it.Subtotal().StringFixed(2),
		})
	}
	return items
}

// ValidRating reports whether the star widget could have produced value.
func ValidRating(value int) bool {
	return value >= 0 && value <= MaxRating
}
