package repository

import (
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("not found")

// Order is a row of the orders table. Items are stored as a JSON array.
type Order struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Address    string    `db:"address"`
	Status     string    `db:"status"`
	FoodStatus string    `db:"food_status"`
	PaymentID  *string   `db:"payment_id"`
	Latitude   *float64  `db:"latitude"`
	Longitude  *float64  `db:"longitude"`
	Items      []byte    `db:"items"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type FoodStatusHistoryEntry struct {
	ID         int64     `db:"id"`
	OrderID    string    `db:"order_id"`
	FromStatus string    `db:"from_status"`
	ToStatus   string    `db:"to_status"`
	ChangedAt  time.Time `db:"changed_at"`
}
