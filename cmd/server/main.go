package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deuce-szn/BiteHub/internal/cache"
	"github.com/deuce-szn/BiteHub/internal/config"
	"github.com/deuce-szn/BiteHub/internal/db"
	"github.com/deuce-szn/BiteHub/internal/grpcserver"
	"github.com/deuce-szn/BiteHub/internal/kafka"
	"github.com/deuce-szn/BiteHub/internal/logger"
	"github.com/deuce-szn/BiteHub/internal/orderclient"
	"github.com/deuce-szn/BiteHub/internal/repository/postgresql"
	"github.com/deuce-szn/BiteHub/internal/server"
	"github.com/deuce-szn/BiteHub/internal/storage"
	"github.com/deuce-szn/BiteHub/internal/tracing"
	"github.com/deuce-szn/BiteHub/internal/tracking"
	"github.com/deuce-szn/BiteHub/internal/tracking/session"
)

const serviceName = "bitehub-tracking"

func main() {
	envPath := config.LoadEnv()

	log := logger.New(os.Getenv("LOG_LEVEL"))
	defer func() { _ = log.Sync() }()
	if envPath != "" {
		log.Info("loaded environment file", zap.String("path", envPath))
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("service gracefully stopped")
}

type backend struct {
	fetcher tracking.OrderFetcher
	mutator tracking.StatusMutator
	orders  server.Orders
	probe   func(ctx context.Context) error
	workers []func(ctx context.Context) error
	closers []func()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	shutdownTracing, err := tracing.Init(serviceName, cfg.JaegerEndpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	b, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range b.closers {
			c()
		}
	}()

	registry := session.NewRegistry(b.fetcher, b.mutator, session.Config{
		ThankYouDuration: cfg.ThankYouDuration,
		IdleTTL:          cfg.SessionIdleTTL,
		SweepInterval:    cfg.SessionIdleTTL / 2,
	}, log)

	httpServer := server.New(registry, b.orders, cfg.CORSOrigins, log)
	grpcServer := grpcserver.NewServer(log)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx, cfg.HTTPPort) })
	g.Go(func() error { return grpcServer.Serve(gctx, lis) })
	g.Go(func() error { return registry.Run(gctx) })
	if b.probe != nil {
		g.Go(func() error { return watchBackend(gctx, b.probe, grpcServer, log) })
	}
	for _, w := range b.workers {
		w := w
		g.Go(func() error { return w(gctx) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func buildBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	if cfg.OrderBackend == config.BackendRemote {
		client, err := orderclient.New(cfg.OrderServiceURL, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		log.Info("using remote order service", zap.String("url", cfg.OrderServiceURL))
		return &backend{fetcher: client, mutator: client}, nil
	}

	database, err := db.NewDb(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx); err != nil {
		database.Close()
		return nil, err
	}

	orderRepo := postgresql.NewOrderRepo(database)
	historyRepo := postgresql.NewHistoryRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo()

	orderCache := cache.NewOrderCache(orderRepo, log)
	if err := orderCache.LoadInitialData(ctx); err != nil {
		log.Warn("failed to warm order cache", zap.Error(err))
	}

	st := storage.NewStorage(database, orderRepo, historyRepo, outboxRepo, orderCache, cfg.KafkaTopic, log)

	var producer kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewBrokerProducer(cfg.KafkaBrokers, log)
	} else {
		log.Info("KAFKA_BROKERS not set, food status events go to the log")
		producer = kafka.NewConsoleProducer(log)
	}
	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		Lease:        cfg.OutboxLease,
	}, log)

	return &backend{
		fetcher: st,
		mutator: st,
		orders:  st,
		probe:   database.Ping,
		workers: []func(ctx context.Context) error{
			func(ctx context.Context) error {
				err := publisher.Run(ctx)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				publisher.Shutdown(shutdownCtx)
				return err
			},
		},
		closers: []func(){database.Close},
	}, nil
}

const probeInterval = 10 * time.Second

// watchBackend reports the tracking service as NOT_SERVING while the order
// database does not answer pings.
func watchBackend(ctx context.Context, probe func(ctx context.Context) error, health *grpcserver.Server, log *zap.Logger) error {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeInterval/2)
		err := probe(probeCtx)
		cancel()

		if ok := err == nil; ok != serving {
			serving = ok
			health.SetServing(ok)
			if ok {
				log.Info("order database reachable again")
			} else {
				log.Warn("order database unreachable", zap.Error(err))
			}
		}
	}
}
