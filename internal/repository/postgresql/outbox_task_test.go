package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/deuce-szn/BiteHub/internal/db/mocks"
	"github.com/deuce-szn/BiteHub/internal/repository"
)

func fixOutboxNow(t *testing.T, now time.Time) {
	prev := outboxNow
	outboxNow = func() time.Time { return now }
	t.Cleanup(func() { outboxNow = prev })
}

func TestOutboxTaskRepo_CreateTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	fixOutboxNow(t, now)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewOutboxTaskRepo()

	task := &repository.OutboxTask{
		Payload: json.RawMessage(`{"order_id":"A1"}`),
		Topic:   "order-food-status",
		Key:     "A1",
	}

	mockTx.EXPECT().
		Exec(gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Eq(repository.TaskStatusCreated),
			gomock.Eq(task.Payload),
			gomock.Eq("order-food-status"),
			gomock.Eq("A1"),
			gomock.Eq(now),
			gomock.Eq(now)).
		Return(pgconn.CommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.CreateTx(ctx, mockTx, task))
	assert.NotEqual(t, uuid.Nil, task.ID)
}

func TestOutboxTaskRepo_GetProcessableTasksTx(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewOutboxTaskRepo()

	expected := []*repository.OutboxTask{{ID: uuid.New(), Status: repository.TaskStatusProcessing, Topic: "t"}}
	claimedBefore := time.Date(2025, 2, 1, 8, 59, 0, 0, time.UTC)

	mockTx.EXPECT().
		Select(gomock.Any(), gomock.Any(), gomock.Any(),
			repository.TaskStatusCreated, repository.TaskStatusFailed, 3,
			repository.TaskStatusProcessing, claimedBefore, 10).
		DoAndReturn(func(_ context.Context, dest *[]*repository.OutboxTask, query string, _ ...interface{}) error {
			assert.Contains(t, query, "SKIP LOCKED")
			assert.Contains(t, query, "updated_at < $5")
			*dest = expected
			return nil
		})

	tasks, err := repo.GetProcessableTasksTx(ctx, mockTx, 10, 3, claimedBefore)
	require.NoError(t, err)
	assert.Equal(t, expected, tasks)
}

func TestOutboxTaskRepo_UpdateTaskStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	fixOutboxNow(t, now)
	id := uuid.New()

	t.Run("done", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewOutboxTaskRepo()

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), id, repository.TaskStatusDone, 0, gomock.Nil(), &now, now).
			Return(pgconn.CommandTag("UPDATE 1"), nil)

		assert.NoError(t, repo.UpdateTaskStatus(ctx, mockDB, id, repository.TaskStatusDone, 0, nil, &now))
	})

	t.Run("missing task", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewOutboxTaskRepo()

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.UpdateTaskStatusTx(ctx, mockTx, id, repository.TaskStatusProcessing, 1, nil, nil)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewOutboxTaskRepo()
		execErr := errors.New("db down")

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, execErr)

		err := repo.UpdateTaskStatus(ctx, mockDB, id, repository.TaskStatusFailed, 2, nil, nil)
		assert.ErrorIs(t, err, execErr)
	})
}
