//go:generate mockgen -source ./repositories.go -destination=./mocks/repositories.go -package=mock_storage
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deuce-szn/BiteHub/internal/db"
	"github.com/deuce-szn/BiteHub/internal/repository"
)

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByIDForUpdateTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error)
	UpdateFoodStatusTx(ctx context.Context, tx db.Tx, id string, foodStatus string, updatedAt time.Time) error
	GetAllActive(ctx context.Context) ([]*repository.Order, error)
}

type HistoryRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.FoodStatusHistoryEntry) error
	GetByOrderID(ctx context.Context, orderID string) ([]*repository.FoodStatusHistoryEntry, error)
}

type OutboxTaskRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
	GetProcessableTasksTx(ctx context.Context, tx db.Tx, limit int, maxAttempts int, claimedBefore time.Time) ([]*repository.OutboxTask, error)
	UpdateTaskStatusTx(ctx context.Context, tx db.Tx, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
	UpdateTaskStatus(ctx context.Context, db db.DB, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
}
