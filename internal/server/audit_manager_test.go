package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedManager(batchSize int, timeout time.Duration) (*AuditManager, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewAuditManager(1, batchSize, timeout, zap.New(core)), logs
}

func TestAuditManager_FlushesFullBatch(t *testing.T) {
	m, logs := newObservedManager(2, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.LogEntry(ctx, AuditLogEntry{Handler: routeConfirmPickup, SessionID: "s1", StatusCode: 200})
	m.LogEntry(ctx, AuditLogEntry{Handler: routeSubmitRating, SessionID: "s1", StatusCode: 200})

	require.Eventually(t, func() bool { return logs.FilterMessage("audit").Len() == 2 }, time.Second, 10*time.Millisecond)

	entries := logs.FilterMessage("audit").AllUntimed()
	assert.Equal(t, routeConfirmPickup, entries[0].ContextMap()["handler"])
	assert.Equal(t, "s1", entries[0].ContextMap()["session_id"])
	assert.Equal(t, "worker-0", entries[0].ContextMap()["worker"])
	assert.Equal(t, 0, m.Pending())
}

func TestAuditManager_FlushesOnTimeout(t *testing.T) {
	m, logs := newObservedManager(10, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.LogEntry(ctx, AuditLogEntry{Handler: routeGetSession})

	require.Eventually(t, func() bool { return logs.FilterMessage("audit").Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAuditManager_ShutdownFlushesPending(t *testing.T) {
	m, logs := newObservedManager(10, time.Hour)
	m.Start(context.Background())

	for i := 0; i < 3; i++ {
		m.LogEntry(context.Background(), AuditLogEntry{Handler: routeSetRating})
	}
	m.Shutdown(context.Background())

	assert.Equal(t, 3, logs.FilterMessage("audit").Len())
	assert.Equal(t, 0, m.Pending())
}

func TestAuditManager_LogAfterShutdownIsDirect(t *testing.T) {
	m, logs := newObservedManager(10, time.Hour)
	m.Start(context.Background())
	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	m.LogEntry(context.Background(), AuditLogEntry{Handler: routeCloseSession, OrderID: "A1"})

	entries := logs.FilterMessage("audit").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "direct", entries[0].ContextMap()["worker"])
	assert.Equal(t, "A1", entries[0].ContextMap()["order_id"])
}

func TestAuditLogEntry_FieldsSkipEmpty(t *testing.T) {
	fields := AuditLogEntry{Handler: routeTrackOrder, OrderID: "A1"}.fields()

	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "order_id")
	assert.NotContains(t, keys, "session_id")
	assert.NotContains(t, keys, "request")
}
