package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deuce-szn/BiteHub/internal/cache"
	"github.com/deuce-szn/BiteHub/internal/db"
	"github.com/deuce-szn/BiteHub/internal/metrics"
	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/repository"
)

const DefaultFoodStatusTopic = "order-food-status"

type FoodStatusChange struct {
	FromStatus order.FoodStatus `json:"from_status"`
	ToStatus   order.FoodStatus `json:"to_status"`
	ChangedAt  time.Time        `json:"changed_at"`
}

// Storage is the order service backed by Postgres. Every food status change
// is written together with its history entry and an outbox task.
type Storage struct {
	db          db.DB
	orderRepo   OrderRepository
	historyRepo HistoryRepository
	outboxRepo  OutboxTaskRepository
	cache       *cache.OrderCache
	topic       string
	logger      *zap.Logger
	timeNow     func() time.Time
}

func NewStorage(
	db db.DB,
	orderRepo OrderRepository,
	historyRepo HistoryRepository,
	outboxRepo OutboxTaskRepository,
	orderCache *cache.OrderCache,
	topic string,
	logger *zap.Logger,
) *Storage {
	if topic == "" {
		topic = DefaultFoodStatusTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		db:          db,
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		cache:       orderCache,
		topic:       topic,
		logger:      logger.Named("storage"),
		timeNow:     time.Now,
	}
}

// TrackOrder always reads the row from the database: order status, payment
// and location are written by other services and never pass through here.
func (s *Storage) TrackOrder(ctx context.Context, orderID string) (*order.Order, error) {
	row, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toDomain(row)
}

func (s *Storage) getOrder(ctx context.Context, orderID string) (*repository.Order, error) {
	row, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, order.ErrNotFound
		}
		metrics.OperationErrorsTotal.WithLabelValues("track_order").Inc()
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(row)
	}
	return row, nil
}

// orderExists answers from the cache when it can. Orders are never deleted, so
// a cached row is enough to know the id is valid.
func (s *Storage) orderExists(ctx context.Context, orderID string) error {
	if s.cache != nil {
		if _, ok := s.cache.Get(orderID); ok {
			return nil
		}
	}
	_, err := s.getOrder(ctx, orderID)
	return err
}

// UpdateFoodStatus moves the order to status if the kitchen workflow allows it
// and returns the committed snapshot. Setting the current status again is a
// no-op that returns the stored snapshot.
func (s *Storage) UpdateFoodStatus(ctx context.Context, orderID string, status order.FoodStatus) (*order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", order.ErrInvalidFoodStatus, status)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update_food_status").Inc()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	row, err := s.orderRepo.GetByIDForUpdateTx(ctx, tx, orderID)
	if err != nil {
		s.rollback(ctx, tx)
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	from := order.FoodStatus(row.FoodStatus)
	if !order.CanTransition(from, status) {
		s.rollback(ctx, tx)
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, from, status)
	}
	if from == status {
		s.rollback(ctx, tx)
		return toDomain(row)
	}

	now := s.timeNow().UTC()
	if err := s.orderRepo.UpdateFoodStatusTx(ctx, tx, orderID, string(status), now); err != nil {
		s.rollback(ctx, tx)
		return nil, fmt.Errorf("failed to update food status: %w", err)
	}

	entry := &repository.FoodStatusHistoryEntry{
		OrderID:    orderID,
		FromStatus: string(from),
		ToStatus:   string(status),
		ChangedAt:  now,
	}
	if err := s.historyRepo.CreateTx(ctx, tx, entry); err != nil {
		s.rollback(ctx, tx)
		return nil, fmt.Errorf("failed to add food status history entry: %w", err)
	}

	payload, err := json.Marshal(repository.FoodStatusChangedEvent{
		Event:      repository.EventFoodStatusChanged,
		OrderID:    orderID,
		FromStatus: string(from),
		ToStatus:   string(status),
		ChangedAt:  now,
	})
	if err != nil {
		s.rollback(ctx, tx)
		return nil, fmt.Errorf("failed to encode food status event: %w", err)
	}
	task := &repository.OutboxTask{Topic: s.topic, Key: orderID, Payload: payload}
	if err := s.outboxRepo.CreateTx(ctx, tx, task); err != nil {
		s.rollback(ctx, tx)
		return nil, fmt.Errorf("failed to enqueue food status event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update_food_status").Inc()
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	row.FoodStatus = string(status)
	row.UpdatedAt = now
	if s.cache != nil {
		s.cache.Set(row)
	}
	metrics.FoodStatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("food status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	return toDomain(row)
}

func (s *Storage) GetFoodStatusHistory(ctx context.Context, orderID string) ([]FoodStatusChange, error) {
	if err := s.orderExists(ctx, orderID); err != nil {
		return nil, err
	}

	rows, err := s.historyRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get food status history: %w", err)
	}

	changes := make([]FoodStatusChange, len(rows))
	for i, row := range rows {
		changes[i] = FoodStatusChange{
			FromStatus: order.FoodStatus(row.FromStatus),
			ToStatus:   order.FoodStatus(row.ToStatus),
			ChangedAt:  row.ChangedAt,
		}
	}
	return changes, nil
}

func (s *Storage) rollback(ctx context.Context, tx db.Tx) {
	if err := tx.Rollback(ctx); err != nil {
		s.logger.Warn("failed to roll back transaction", zap.Error(err))
	}
}
