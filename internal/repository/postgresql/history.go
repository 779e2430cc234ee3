package postgresql

import (
	"context"

	"github.com/deuce-szn/BiteHub/internal/db"
	"github.com/deuce-szn/BiteHub/internal/repository"
	"github.com/deuce-szn/BiteHub/internal/storage"
)

type HistoryRepo struct {
	db db.DB
}

func NewHistoryRepo(db db.DB) storage.HistoryRepository {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.FoodStatusHistoryEntry) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO food_status_history (
            order_id, from_status, to_status, changed_at
        ) VALUES ($1, $2, $3, $4)
    `, entry.OrderID, entry.FromStatus, entry.ToStatus, entry.ChangedAt)
	return err
}

func (r *HistoryRepo) GetByOrderID(ctx context.Context, orderID string) ([]*repository.FoodStatusHistoryEntry, error) {
	var entries []*repository.FoodStatusHistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT id, order_id, from_status, to_status, changed_at
        FROM food_status_history
        WHERE order_id = $1
        ORDER BY changed_at ASC, id ASC
    `, orderID)
	return entries, err
}
