package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/deuce-szn/BiteHub/internal/cache"
	"github.com/deuce-szn/BiteHub/internal/db"
	mock_db "github.com/deuce-szn/BiteHub/internal/db/mocks"
	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/repository"
	mock_storage "github.com/deuce-szn/BiteHub/internal/storage/mocks"
)

type deps struct {
	db      *mock_db.MockDB
	tx      *mock_db.MockTx
	orders  *mock_storage.MockOrderRepository
	history *mock_storage.MockHistoryRepository
	outbox  *mock_storage.MockOutboxTaskRepository
}

func newTestStorage(t *testing.T, withCache bool) (*Storage, deps) {
	ctrl := gomock.NewController(t)
	d := deps{
		db:      mock_db.NewMockDB(ctrl),
		tx:      mock_db.NewMockTx(ctrl),
		orders:  mock_storage.NewMockOrderRepository(ctrl),
		history: mock_storage.NewMockHistoryRepository(ctrl),
		outbox:  mock_storage.NewMockOutboxTaskRepository(ctrl),
	}
	var c *cache.OrderCache
	if withCache {
		c = cache.NewOrderCache(d.orders, nil)
	}
	s := NewStorage(d.db, d.orders, d.history, d.outbox, c, "", nil)
	return s, d
}

func row(foodStatus string) *repository.Order {
	created := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	lat, lng := 55.75, 37.61
	return &repository.Order{
		ID:         "A1",
		Name:       "Jane Doe",
		Address:    "1 Main St",
		Status:     "NEW",
		FoodStatus: foodStatus,
		Latitude:   &lat,
		Longitude:  &lng,
		Items:      []byte(`[{"name":"Burger","quantity":2,"price":"5.50"}]`),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestStorage_TrackOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("maps row to order", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.orders.EXPECT().GetByID(ctx, "A1").Return(row("READY FOR PICKUP"), nil)

		o, err := s.TrackOrder(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, "A1", o.ID)
		assert.Equal(t, order.StatusNew, o.Status)
		assert.Equal(t, order.FoodStatusReadyForPickup, o.FoodStatus)
		assert.Empty(t, o.PaymentID)
		assert.Equal(t, &order.Location{Lat: 55.75, Lng: 37.61}, o.Location)
		require.Len(t, o.Items, 1)
		assert.True(t, decimal.RequireFromString("11").Equal(o.Total()))
	})

	t.Run("not found", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.orders.EXPECT().GetByID(ctx, "missing").Return(nil, repository.ErrObjectNotFound)

		_, err := s.TrackOrder(ctx, "missing")
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.orders.EXPECT().GetByID(ctx, "A1").Return(nil, errors.New("db down"))

		_, err := s.TrackOrder(ctx, "A1")
		assert.ErrorContains(t, err, "failed to get order")
		assert.NotErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("every fetch sees changes made by other services", func(t *testing.T) {
		s, d := newTestStorage(t, true)

		delivered := row("PICKED UP")
		delivered.Status = "DELIVERED"
		paymentID := "pay-1"
		delivered.PaymentID = &paymentID

		gomock.InOrder(
			d.orders.EXPECT().GetByID(ctx, "A1").Return(row("READY FOR PICKUP"), nil),
			d.orders.EXPECT().GetByID(ctx, "A1").Return(delivered, nil),
		)

		o, err := s.TrackOrder(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, order.StatusNew, o.Status)
		assert.True(t, o.PaymentDue())

		o, err = s.TrackOrder(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered, o.Status)
		assert.Equal(t, "pay-1", o.PaymentID)
		assert.True(t, o.ShowsLocation())
	})

	t.Run("warmed cache does not hide database state", func(t *testing.T) {
		s, d := newTestStorage(t, true)
		d.orders.EXPECT().GetAllActive(ctx).Return([]*repository.Order{row("PREPARING")}, nil)
		require.NoError(t, s.cache.LoadInitialData(ctx))

		d.orders.EXPECT().GetByID(ctx, "A1").Return(row("READY FOR PICKUP"), nil)

		o, err := s.TrackOrder(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, order.FoodStatusReadyForPickup, o.FoodStatus)
	})

	t.Run("broken items payload", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		r := row("PREPARING")
		r.Items = []byte(`{`)
		d.orders.EXPECT().GetByID(ctx, "A1").Return(r, nil)

		_, err := s.TrackOrder(ctx, "A1")
		assert.ErrorContains(t, err, "failed to decode items")
	})
}

func TestStorage_UpdateFoodStatus(t *testing.T) {
	ctx := context.Background()
	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("successful pickup", func(t *testing.T) {
		s, d := newTestStorage(t, true)
		s.timeNow = func() time.Time { return fixedTime }

		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(row("READY FOR PICKUP"), nil)
		d.orders.EXPECT().UpdateFoodStatusTx(ctx, d.tx, "A1", "PICKED UP", fixedTime).Return(nil)
		d.history.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ db.Tx, e *repository.FoodStatusHistoryEntry) error {
				assert.Equal(t, "A1", e.OrderID)
				assert.Equal(t, "READY FOR PICKUP", e.FromStatus)
				assert.Equal(t, "PICKED UP", e.ToStatus)
				assert.Equal(t, fixedTime, e.ChangedAt)
				return nil
			})
		d.outbox.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ db.Tx, task *repository.OutboxTask) error {
				assert.Equal(t, DefaultFoodStatusTopic, task.Topic)
				assert.Equal(t, "A1", task.Key)
				var ev repository.FoodStatusChangedEvent
				require.NoError(t, json.Unmarshal(task.Payload, &ev))
				assert.Equal(t, repository.EventFoodStatusChanged, ev.Event)
				assert.Equal(t, "PICKED UP", ev.ToStatus)
				return nil
			})
		d.tx.EXPECT().Commit(ctx).Return(nil)

		o, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		require.NoError(t, err)
		assert.Equal(t, order.FoodStatusPickedUp, o.FoodStatus)

		// picked up orders leave the cache
		_, cached := s.cache.Get("A1")
		assert.False(t, cached)
	})

	t.Run("unknown status is rejected before touching the database", func(t *testing.T) {
		s, _ := newTestStorage(t, false)

		_, err := s.UpdateFoodStatus(ctx, "A1", "EATEN")
		assert.ErrorIs(t, err, order.ErrInvalidFoodStatus)
	})

	t.Run("transition not allowed", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(row("PREPARING"), nil)
		d.tx.EXPECT().Rollback(ctx).Return(nil)

		_, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(row("PICKED UP"), nil)
		d.tx.EXPECT().Rollback(ctx).Return(nil)

		o, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		require.NoError(t, err)
		assert.Equal(t, order.FoodStatusPickedUp, o.FoodStatus)
	})

	t.Run("order not found", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(nil, repository.ErrObjectNotFound)
		d.tx.EXPECT().Rollback(ctx).Return(nil)

		_, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("transaction begin error", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(nil, errors.New("db error"))

		_, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		assert.ErrorContains(t, err, "failed to begin transaction")
	})

	t.Run("history error rolls back", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(row("READY FOR PICKUP"), nil)
		d.orders.EXPECT().UpdateFoodStatusTx(ctx, d.tx, "A1", "PICKED UP", gomock.Any()).Return(nil)
		d.history.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).Return(errors.New("history error"))
		d.tx.EXPECT().Rollback(ctx).Return(nil)

		_, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		assert.ErrorContains(t, err, "failed to add food status history entry")
	})

	t.Run("outbox error rolls back", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(row("READY FOR PICKUP"), nil)
		d.orders.EXPECT().UpdateFoodStatusTx(ctx, d.tx, "A1", "PICKED UP", gomock.Any()).Return(nil)
		d.history.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).Return(nil)
		d.outbox.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).Return(errors.New("outbox error"))
		d.tx.EXPECT().Rollback(ctx).Return(nil)

		_, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		assert.ErrorContains(t, err, "failed to enqueue food status event")
	})

	t.Run("commit error", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.db.EXPECT().BeginTx(ctx).Return(d.tx, nil)
		d.orders.EXPECT().GetByIDForUpdateTx(ctx, d.tx, "A1").Return(row("READY FOR PICKUP"), nil)
		d.orders.EXPECT().UpdateFoodStatusTx(ctx, d.tx, "A1", "PICKED UP", gomock.Any()).Return(nil)
		d.history.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).Return(nil)
		d.outbox.EXPECT().CreateTx(ctx, d.tx, gomock.Any()).Return(nil)
		d.tx.EXPECT().Commit(ctx).Return(errors.New("serialization failure"))

		_, err := s.UpdateFoodStatus(ctx, "A1", order.FoodStatusPickedUp)
		assert.ErrorContains(t, err, "failed to commit transaction")
	})
}

func TestStorage_GetFoodStatusHistory(t *testing.T) {
	ctx := context.Background()
	changed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.orders.EXPECT().GetByID(ctx, "A1").Return(row("PICKED UP"), nil)
		d.history.EXPECT().GetByOrderID(ctx, "A1").Return([]*repository.FoodStatusHistoryEntry{
			{ID: 1, OrderID: "A1", FromStatus: "READY FOR PICKUP", ToStatus: "PICKED UP", ChangedAt: changed},
		}, nil)

		changes, err := s.GetFoodStatusHistory(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, []FoodStatusChange{
			{FromStatus: order.FoodStatusReadyForPickup, ToStatus: order.FoodStatusPickedUp, ChangedAt: changed},
		}, changes)
	})

	t.Run("unknown order", func(t *testing.T) {
		s, d := newTestStorage(t, false)
		d.orders.EXPECT().GetByID(ctx, "missing").Return(nil, repository.ErrObjectNotFound)

		_, err := s.GetFoodStatusHistory(ctx, "missing")
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("cached order skips existence lookup", func(t *testing.T) {
		s, d := newTestStorage(t, true)
		s.cache.Set(row("PREPARING"))
		d.history.EXPECT().GetByOrderID(ctx, "A1").Return(nil, nil)

		changes, err := s.GetFoodStatusHistory(ctx, "A1")
		require.NoError(t, err)
		assert.Empty(t, changes)
	})
}
