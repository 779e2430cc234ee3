package tracking

import (
	"sync"
	"time"
)

// ackTimer fires a callback once per arm. Re-arming replaces the pending
// expiry, and a callback belonging to an older arm is ignored even if the
// runtime already started it.
type ackTimer struct {
	mu    sync.Mutex
	d     time.Duration
	t     *time.Timer
	token uint64
}

func newAckTimer(d time.Duration) *ackTimer {
	return &ackTimer{d: d}
}

func (a *ackTimer) arm(fire func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.t != nil {
		a.t.Stop()
	}
	a.token++
	token := a.token
	a.t = time.AfterFunc(a.d, func() {
		if a.take(token) {
			fire()
		}
	})
}

func (a *ackTimer) take(token uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if token != a.token || a.t == nil {
		return false
	}
	a.t = nil
	return true
}

func (a *ackTimer) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.t != nil {
		a.t.Stop()
		a.t = nil
	}
	a.token++
}

func (a *ackTimer) pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t != nil
}
