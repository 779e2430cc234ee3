package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidFoodStatus = errors.New("invalid food status")
	ErrInvalidTransition = errors.New("food status transition not allowed")
)

// Status is the fulfilment state of an order. Values the backend reports that
// are not listed here are carried through unchanged.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusPaid      Status = "PAID"
	StatusDelivered Status = "DELIVERED"
	StatusCanceled  Status = "CANCELED"
)

type FoodStatus string

const (
	FoodStatusPending        FoodStatus = "PENDING"
	FoodStatusPreparing      FoodStatus = "PREPARING"
	FoodStatusReadyForPickup FoodStatus = "READY FOR PICKUP"
	FoodStatusPickedUp       FoodStatus = "PICKED UP"
)

var foodStatusNext = map[FoodStatus]FoodStatus{
	FoodStatusPending:        FoodStatusPreparing,
	FoodStatusPreparing:      FoodStatusReadyForPickup,
	FoodStatusReadyForPickup: FoodStatusPickedUp,
}

func (s FoodStatus) Valid() bool {
	switch s {
	case FoodStatusPending, FoodStatusPreparing, FoodStatusReadyForPickup, FoodStatusPickedUp:
		return true
	}
	return false
}

// CanTransition reports whether the kitchen workflow allows moving from one
// food status to the next. Setting the current value again is allowed.
func CanTransition(from, to FoodStatus) bool {
	if from == to {
		return true
	}
	return foodStatusNext[from] == to
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Item struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Status     Status     `json:"status"`
	FoodStatus FoodStatus `json:"foodStatus"`
	PaymentID  string     `json:"paymentId,omitempty"`
	Location   *Location  `json:"location,omitempty"`
	Items      []Item     `json:"items"`
}

func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Clone returns a deep copy so snapshots never share items or location.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Location != nil {
		loc := *o.Location
		c.Location = &loc
	}
	if o.Items != nil {
		c.Items = make([]Item, len(o.Items))
		copy(c.Items, o.Items)
	}
	return &c
}

func (o *Order) ReadyForPickup() bool {
	return o.FoodStatus == FoodStatusReadyForPickup
}

func (o *Order) PaymentDue() bool {
	return o.Status == StatusNew
}

func (o *Order) ShowsLocation() bool {
	return o.Status == StatusDelivered && o.Location != nil
}
