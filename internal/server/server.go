//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/deuce-szn/BiteHub/internal/order"
	"github.com/deuce-szn/BiteHub/internal/presentation"
	"github.com/deuce-szn/BiteHub/internal/storage"
	"github.com/deuce-szn/BiteHub/internal/tracking"
	"github.com/deuce-szn/BiteHub/internal/tracking/session"
)

// Sessions is the set of open tracking views.
type Sessions interface {
	Open(ctx context.Context, orderID string) (session.Snapshot, error)
	View(id string) (session.Snapshot, error)
	ConfirmPickup(ctx context.Context, id string) (session.Snapshot, error)
	DismissRating(id string) (session.Snapshot, error)
	SetRating(id string, value int) (session.Snapshot, error)
	SubmitRating(id string) (session.Snapshot, error)
	Close(id string) error
}

// Orders is the order backend. It is only served when running against Postgres.
type Orders interface {
	TrackOrder(ctx context.Context, orderID string) (*order.Order, error)
	UpdateFoodStatus(ctx context.Context, orderID string, status order.FoodStatus) (*order.Order, error)
	GetFoodStatusHistory(ctx context.Context, orderID string) ([]storage.FoodStatusChange, error)
}

const (
	routeHealth           = "health"
	routeMetrics          = "metrics"
	routeOpenSession      = "openSession"
	routeGetSession       = "getSession"
	routeConfirmPickup    = "confirmPickup"
	routeSetRating        = "setRating"
	routeDismissRating    = "dismissRating"
	routeSubmitRating     = "submitRating"
	routeCloseSession     = "closeSession"
	routeTrackOrder       = "trackOrder"
	routeUpdateFoodStatus = "updateFoodStatus"
	routeFoodStatusLog    = "foodStatusHistory"
)

var unaudited = map[string]struct{}{
	routeHealth:  {},
	routeMetrics: {},
}

var timeNow = time.Now

type Server struct {
	sessions     Sessions
	orders       Orders
	corsOrigins  []string
	logger       *zap.Logger
	server       *http.Server
	AuditManager *AuditManager
}

// New builds the HTTP server. orders may be nil, in which case the order
// backend routes are not registered.
func New(sessions Sessions, orders Orders, corsOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &Server{
		sessions:     sessions,
		orders:       orders,
		corsOrigins:  corsOrigins,
		logger:       logger,
		AuditManager: NewAuditManager(2, 5, 500*time.Millisecond, logger),
	}
}

// Run serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.AuditManager.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("port", port))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")

	s.AuditManager.Shutdown(ctx)
	return nil
}

// Handler returns the routed handler with CORS and audit logging applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.auditLogMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet).Name(routeHealth)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name(routeMetrics)

	router.HandleFunc("/tracking/sessions", s.handleOpenSession).Methods(http.MethodPost).Name(routeOpenSession)
	t := router.PathPrefix("/tracking/sessions").Subrouter()
	t.HandleFunc("/{sid}", s.handleGetSession).Methods(http.MethodGet).Name(routeGetSession)
	t.HandleFunc("/{sid}", s.handleCloseSession).Methods(http.MethodDelete).Name(routeCloseSession)
	t.HandleFunc("/{sid}/pickup", s.handleConfirmPickup).Methods(http.MethodPost).Name(routeConfirmPickup)
	t.HandleFunc("/{sid}/rating", s.handleSetRating).Methods(http.MethodPut).Name(routeSetRating)
	t.HandleFunc("/{sid}/rating/dismiss", s.handleDismissRating).Methods(http.MethodPost).Name(routeDismissRating)
	t.HandleFunc("/{sid}/rating/submit", s.handleSubmitRating).Methods(http.MethodPost).Name(routeSubmitRating)

	if s.orders != nil {
		o := router.PathPrefix("/api/orders").Subrouter()
		o.HandleFunc("/track/{id}", s.handleTrackOrder).Methods(http.MethodGet).Name(routeTrackOrder)
		o.HandleFunc("/{id}/food-status", s.handleUpdateFoodStatus).Methods(http.MethodPut).Name(routeUpdateFoodStatus)
		o.HandleFunc("/{id}/food-status/history", s.handleFoodStatusHistory).Methods(http.MethodGet).Name(routeFoodStatusLog)
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(router)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionResponse is a session snapshot together with the page rendered from it.
type sessionResponse struct {
	session.Snapshot
	Page  presentation.Page `json:"page"`
	Error string            `json:"error,omitempty"`
}

func newSessionResponse(snap session.Snapshot) sessionResponse {
	return sessionResponse{
		Snapshot: snap,
		Page:     presentation.Render(snap.View, snap.Redirect),
	}
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var openRequest struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&openRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.sessions.Open(r.Context(), openRequest.OrderID)
	if err != nil {
		s.logger.Error("failed to open tracking session", zap.String("order_id", openRequest.OrderID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, newSessionResponse(snap))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.View(mux.Vars(r)["sid"])
	s.respondSession(w, snap, err)
}

func (s *Server) handleConfirmPickup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.ConfirmPickup(r.Context(), mux.Vars(r)["sid"])
	s.respondSession(w, snap, err)
}

func (s *Server) handleSetRating(w http.ResponseWriter, r *http.Request) {
	var ratingRequest struct {
		Value *int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&ratingRequest); err != nil || ratingRequest.Value == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !presentation.ValidRating(*ratingRequest.Value) {
		respondError(w, http.StatusBadRequest, "Rating must be between 0 and 5")
		return
	}

	snap, err := s.sessions.SetRating(mux.Vars(r)["sid"], *ratingRequest.Value)
	s.respondSession(w, snap, err)
}

func (s *Server) handleDismissRating(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.DismissRating(mux.Vars(r)["sid"])
	s.respondSession(w, snap, err)
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.SubmitRating(mux.Vars(r)["sid"])
	s.respondSession(w, snap, err)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(mux.Vars(r)["sid"]); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "Error: "+err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondSession(w http.ResponseWriter, snap session.Snapshot, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, newSessionResponse(snap))
		return
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Error: "+err.Error())
	case errors.Is(err, tracking.ErrPickupFailed):
		resp := newSessionResponse(snap)
		resp.Error = err.Error()
		respondJSON(w, http.StatusBadGateway, resp)
	case errors.Is(err, tracking.ErrPickupUnavailable),
		errors.Is(err, tracking.ErrPickupInProgress),
		errors.Is(err, tracking.ErrRatingNotOpen):
		respondError(w, http.StatusConflict, "Error: "+err.Error())
	case errors.Is(err, tracking.ErrClosed),
		errors.Is(err, tracking.ErrNavigatedAway),
		errors.Is(err, tracking.ErrStaleResponse):
		respondError(w, http.StatusGone, "Error: "+err.Error())
	default:
		s.logger.Error("tracking session operation failed", zap.String("session_id", snap.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
	}
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.TrackOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleUpdateFoodStatus(w http.ResponseWriter, r *http.Request) {
	var statusRequest struct {
		FoodStatus order.FoodStatus `json:"foodStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := s.orders.UpdateFoodStatus(r.Context(), mux.Vars(r)["id"], statusRequest.FoodStatus)
	if err != nil {
		s.respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleFoodStatusHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.orders.GetFoodStatusHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondOrderError(w, err)
		return
	}
	if history == nil {
		history = []storage.FoodStatusChange{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) respondOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "Error: "+err.Error())
	case errors.Is(err, order.ErrInvalidFoodStatus):
		respondError(w, http.StatusBadRequest, "Error: "+err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "Error: "+err.Error())
	default:
		s.logger.Error("order backend request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
	}
}
