package grpcserver

import (
	"context"
	"net"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/deuce-szn/BiteHub/internal/metrics"
)

// TrackingService is the health service name reported for the tracking API.
const TrackingService = "bitehub.tracking"

// Server exposes gRPC health checking for the process and the tracking API.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		health: health.NewServer(),
		logger: logger.Named("grpc"),
	}
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(TrackingService, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Serve blocks on lis until ctx is cancelled, then reports NOT_SERVING and
// stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("grpc server starting", zap.String("addr", lis.Addr().String()))
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info("grpc server stopped")
	return nil
}

// SetServing flips the status of the tracking service, e.g. while the order
// backend is unreachable.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(TrackingService, st)
}

func (s *Server) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	l := s.logger.With(zap.String("rpc_method", info.FullMethod))
	l.Debug("RPC call received")

	resp, err := handler(ctx, req)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("grpc_" + path.Base(info.FullMethod)).Inc()
		l.Warn("RPC call failed", zap.String("code", status.Code(err).String()), zap.Error(err))
		return resp, err
	}
	l.Debug("RPC call handled", zap.Duration("duration", time.Since(start)))
	return resp, nil
}
