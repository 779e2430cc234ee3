package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/deuce-szn/BiteHub/internal/metrics"
	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/repository"
)

type OrderRepository interface {
	GetAllActive(ctx context.Context) ([]*repository.Order, error)
}

// OrderCache holds rows of orders whose food has not been picked up yet.
// Callers always get their own copy of a row.
type OrderCache struct {
	mu     sync.RWMutex
	cache  map[string]*repository.Order
	repo   OrderRepository
	logger *zap.Logger
}

func NewOrderCache(repo OrderRepository, logger *zap.Logger) *OrderCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderCache{
		cache:  make(map[string]*repository.Order),
		repo:   repo,
		logger: logger.Named("order_cache"),
	}
}

func (c *OrderCache) LoadInitialData(ctx context.Context) error {
	rows, err := c.repo.GetAllActive(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range rows {
		c.cache[row.ID] = copyRow(row)
	}
	metrics.OrderCacheItems.Set(float64(len(c.cache)))
	c.logger.Info("loaded active orders into cache", zap.Int("count", len(c.cache)))
	return nil
}

func (c *OrderCache) Get(orderID string) (*repository.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, found := c.cache[orderID]
	if !found {
		return nil, false
	}
	return copyRow(row), true
}

// Set stores the row, or evicts it once the food has been picked up.
func (c *OrderCache) Set(row *repository.Order) {
	if !isActive(row) {
		c.Delete(row.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[row.ID] = copyRow(row)
	metrics.OrderCacheItems.Set(float64(len(c.cache)))
	c.logger.Debug("cached order", zap.String("order_id", row.ID), zap.String("food_status", row.FoodStatus))
}

func (c *OrderCache) Delete(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache[orderID]; found {
		delete(c.cache, orderID)
		metrics.OrderCacheItems.Set(float64(len(c.cache)))
		c.logger.Debug("evicted order", zap.String("order_id", orderID))
	}
}

func (c *OrderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func isActive(row *repository.Order) bool {
	return row.FoodStatus != string(order.FoodStatusPickedUp)
}

func copyRow(row *repository.Order) *repository.Order {
	c := *row
	if row.Items != nil {
		c.Items = append([]byte(nil), row.Items...)
	}
	return &c
}
