package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"

	"github.com/deuce-szn/BiteHub/internal/db"
	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/repository"
	"github.com/deuce-szn/BiteHub/internal/storage"
)

const orderColumns = `id, name, address, status, food_status, payment_id, latitude, longitude, items, created_at, updated_at`

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) storage.OrderRepository {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.Order, error) {
	var row repository.Order
	err := r.db.Get(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *OrderRepo) GetByIDForUpdateTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error) {
	var row repository.Order
	err := tx.Get(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *OrderRepo) UpdateFoodStatusTx(ctx context.Context, tx db.Tx, id string, foodStatus string, updatedAt time.Time) error {
	tag, err := tx.Exec(ctx, `
        UPDATE orders
        SET food_status = $1, updated_at = $2
        WHERE id = $3
    `, foodStatus, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update food status of order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// GetAllActive returns orders whose food has not been handed over yet.
func (r *OrderRepo) GetAllActive(ctx context.Context) ([]*repository.Order, error) {
	var rows []*repository.Order
	err := r.db.Select(ctx, &rows, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE food_status <> $1
        ORDER BY created_at ASC
    `, string(order.FoodStatusPickedUp))
	if err != nil {
		return nil, fmt.Errorf("failed to get active orders: %w", err)
	}
	return rows, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err)
}
