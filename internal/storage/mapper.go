package storage

import (
	"encoding/json"
	"fmt"

	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/repository"
)

func toDomain(row *repository.Order) (*order.Order, error) {
	o := &order.Order{
		ID:         row.ID,
		CreatedAt:  row.CreatedAt,
		Name:       row.Name,
		Address:    row.Address,
		Status:     order.Status(row.Status),
		FoodStatus: order.FoodStatus(row.FoodStatus),
		Items:      []order.Item{},
	}
	if row.PaymentID != nil {
		o.PaymentID = *row.PaymentID
	}
	if row.Latitude != nil && row.Longitude != nil {
		o.Location = &order.Location{Lat: *row.Latitude, Lng: *row.Longitude}
	}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of order %s: %w", row.ID, err)
		}
	}
	return o, nil
}
