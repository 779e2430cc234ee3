package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "github.com/deuce-szn/BiteHub/internal/db/mocks"
	"github.com/deuce-szn/BiteHub/internal/repository"
)

func TestHistoryRepo_CreateTx(t *testing.T) {
	ctx := context.Background()
	changed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	entry := &repository.FoodStatusHistoryEntry{
		OrderID:    "A1",
		FromStatus: "READY FOR PICKUP",
		ToStatus:   "PICKED UP",
		ChangedAt:  changed,
	}

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewHistoryRepo(mockDB)

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(),
				gomock.Eq(entry.OrderID),
				gomock.Eq(entry.FromStatus),
				gomock.Eq(entry.ToStatus),
				gomock.Eq(entry.ChangedAt)).
			Return(nil, nil)

		err := repo.CreateTx(ctx, mockTx, entry)
		assert.NoError(t, err)
	})

	t.Run("Tx Error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewHistoryRepo(mockDB)
		txErr := errors.New("transaction error")

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, txErr)

		err := repo.CreateTx(ctx, mockTx, entry)
		assert.Equal(t, txErr, err)
	})
}

func TestHistoryRepo_GetByOrderID(t *testing.T) {
	ctx := context.Background()
	changed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewHistoryRepo(mockDB)

		expected := []*repository.FoodStatusHistoryEntry{
			{ID: 1, OrderID: "A1", FromStatus: "PENDING", ToStatus: "PREPARING", ChangedAt: changed},
			{ID: 2, OrderID: "A1", FromStatus: "PREPARING", ToStatus: "READY FOR PICKUP", ChangedAt: changed.Add(time.Minute)},
		}

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("A1")).
			DoAndReturn(func(_ context.Context, dest *[]*repository.FoodStatusHistoryEntry, _ string, _ string) error {
				*dest = expected
				return nil
			})

		entries, err := repo.GetByOrderID(ctx, "A1")
		assert.NoError(t, err)
		assert.Equal(t, expected, entries)
	})

	t.Run("DB Error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewHistoryRepo(mockDB)
		dbErr := errors.New("database error")

		mockDB.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(dbErr)

		entries, err := repo.GetByOrderID(ctx, "A1")
		assert.Nil(t, entries)
		assert.Equal(t, dbErr, err)
	})
}
