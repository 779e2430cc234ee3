package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deuce-szn/BiteHub/internal/metrics"
	"github.com/deuce-szn/BiteHub/internal/tracking"
)

// OrderListPath is where a view sends the user when its order cannot be loaded.
const OrderListPath = "/orders"

var ErrSessionNotFound = errors.New("tracking session not found")

type Config struct {
	ThankYouDuration time.Duration
	IdleTTL          time.Duration
	SweepInterval    time.Duration
}

// Snapshot is what a client sees of one session. Redirect is set once, when the
// order could not be loaded, and the session is gone afterwards.
type Snapshot struct {
	ID       string        `json:"session_id"`
	View     tracking.View `json:"view"`
	Redirect string        `json:"redirect,omitempty"`
}

type redirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *redirectNavigator) LeaveToOrderList() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = OrderListPath
}

func (n *redirectNavigator) redirect() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

type entry struct {
	ctrl     *tracking.Controller
	nav      *redirectNavigator
	lastSeen time.Time
}

// Registry keeps one tracking controller per open view.
type Registry struct {
	fetcher tracking.OrderFetcher
	mutator tracking.StatusMutator
	config  Config
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

var timeNow = time.Now

func NewRegistry(fetcher tracking.OrderFetcher, mutator tracking.StatusMutator, config Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		fetcher:  fetcher,
		mutator:  mutator,
		config:   config,
		logger:   logger.Named("tracking"),
		sessions: make(map[string]*entry),
	}
}

// Open enters the tracking view for orderID and performs the initial fetch.
// A fetch failure is not returned as an error: the snapshot carries the
// redirect instead.
func (r *Registry) Open(ctx context.Context, orderID string) (Snapshot, error) {
	id := uuid.NewString()
	nav := &redirectNavigator{}
	ctrl := tracking.New(r.fetcher, r.mutator, nav,
		tracking.WithThankYouDuration(r.config.ThankYouDuration),
		tracking.WithLogger(r.logger.With(zap.String("session_id", id))),
	)
	e := &entry{ctrl: ctrl, nav: nav, lastSeen: timeNow()}

	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()
	metrics.TrackingSessionsOpenedTotal.Inc()
	metrics.TrackingSessionsActive.Inc()

	err := ctrl.Initiate(ctx, orderID)
	if err != nil && !errors.Is(err, tracking.ErrOrderUnavailable) {
		r.Close(id)
		return Snapshot{}, err
	}
	return r.snapshot(id, e), nil
}

func (r *Registry) View(id string) (Snapshot, error) {
	e, err := r.touch(id)
	if err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(id, e), nil
}

func (r *Registry) ConfirmPickup(ctx context.Context, id string) (Snapshot, error) {
	e, err := r.touch(id)
	if err != nil {
		return Snapshot{}, err
	}
	err = e.ctrl.ConfirmPickup(ctx)
	return r.snapshot(id, e), err
}

func (r *Registry) DismissRating(id string) (Snapshot, error) {
	e, err := r.touch(id)
	if err != nil {
		return Snapshot{}, err
	}
	err = e.ctrl.DismissRating()
	return r.snapshot(id, e), err
}

func (r *Registry) SetRating(id string, value int) (Snapshot, error) {
	e, err := r.touch(id)
	if err != nil {
		return Snapshot{}, err
	}
	err = e.ctrl.SetRatingValue(value)
	return r.snapshot(id, e), err
}

func (r *Registry) SubmitRating(id string) (Snapshot, error) {
	e, err := r.touch(id)
	if err != nil {
		return Snapshot{}, err
	}
	_, err = e.ctrl.SubmitRating()
	return r.snapshot(id, e), err
}

// Close exits the view. Unknown ids report ErrSessionNotFound.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.ctrl.Close()
	metrics.TrackingSessionsActive.Dec()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run closes sessions that have been idle longer than IdleTTL until ctx is done,
// then closes every remaining session.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("session janitor started", zap.Duration("idle_ttl", r.config.IdleTTL))
	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("closed idle tracking sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			r.CloseAll()
			r.logger.Info("session janitor stopped")
			return nil
		}
	}
}

func (r *Registry) Sweep() int {
	if r.config.IdleTTL <= 0 {
		return 0
	}
	deadline := timeNow().Add(-r.config.IdleTTL)

	r.mu.Lock()
	var idle []string
	for id, e := range r.sessions {
		if e.lastSeen.Before(deadline) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range idle {
		if r.Close(id) == nil {
			closed++
		}
	}
	return closed
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Close(id)
	}
}

func (r *Registry) touch(id string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = timeNow()
	return e, nil
}

func (r *Registry) snapshot(id string, e *entry) Snapshot {
	s := Snapshot{ID: id, View: e.ctrl.View(), Redirect: e.nav.redirect()}
	if s.Redirect != "" {
		_ = r.Close(id)
	}
	return s
}
