//go:generate mockgen -source ./ports.go -destination=./mocks/ports.go -package=mock_tracking
package tracking

import (
	"context"

	"github.com/deuce-szn/BiteHub/internal/order"
)

// OrderFetcher resolves an order identifier to its current snapshot.
type OrderFetcher interface {
	TrackOrder(ctx context.Context, orderID string) (*order.Order, error)
}

// StatusMutator moves an order to a new food status and returns the
// snapshot acknowledged by the order service.
type StatusMutator interface {
	UpdateFoodStatus(ctx context.Context, orderID string, status order.FoodStatus) (*order.Order, error)
}

// Navigator takes the user away from the tracking view.
type Navigator interface {
	LeaveToOrderList()
}
