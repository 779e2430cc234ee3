package tracking

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAckTimer_FiresOnce(t *testing.T) {
	var fired atomic.Int32
	a := newAckTimer(20 * time.Millisecond)

	a.arm(func() { fired.Add(1) })
	assert.True(t, a.pending())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, a.pending())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestAckTimer_RearmResetsDeadline(t *testing.T) {
	const d = 120 * time.Millisecond
	var first, second atomic.Int32
	a := newAckTimer(d)

	a.arm(func() { first.Add(1) })
	time.Sleep(d / 2)
	rearmedAt := time.Now()
	var firedAt atomic.Int64
	a.arm(func() {
		second.Add(1)
		firedAt.Store(time.Now().UnixNano())
	})

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.GreaterOrEqual(t, time.Duration(firedAt.Load()-rearmedAt.UnixNano()), d)
}

func TestAckTimer_Stop(t *testing.T) {
	var fired atomic.Int32
	a := newAckTimer(20 * time.Millisecond)

	a.arm(func() { fired.Add(1) })
	a.stop()
	assert.False(t, a.pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	a.stop()
}
