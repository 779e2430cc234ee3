package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/deuce-szn/BiteHub/internal/db"
)

const (
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	OrderBackend    string
	OrderServiceURL string
	RequestTimeout  time.Duration

	DB db.Config

	KafkaBrokers []string
	KafkaTopic   string

	ThankYouDuration time.Duration
	SessionIdleTTL   time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxLease        time.Duration

	JaegerEndpoint string
	LogLevel       string
	CORSOrigins    []string
}

// LoadEnv loads the first .env found in the working directory or up to two
// parents, falling back to .example.env next to any of them. It returns the
// loaded path, or an empty string when no file was found.
func LoadEnv() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			return envPath
		}
	}

	for _, envPath := range possiblePaths {
		examplePath := filepath.Join(filepath.Dir(envPath), ".example.env")
		if err := godotenv.Load(examplePath); err == nil {
			return examplePath
		}
	}

	return ""
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) {
	var (
		cfg Config
		err error
	)

	cfg.HTTPPort = getString("HTTP_PORT", "9000")
	cfg.GRPCPort = getString("GRPC_PORT", "50051")
	cfg.OrderBackend = strings.ToLower(getString("ORDER_BACKEND", BackendPostgres))
	cfg.OrderServiceURL = getString("ORDER_SERVICE_URL", "")
	cfg.KafkaTopic = getString("KAFKA_TOPIC", "order-food-status")
	cfg.JaegerEndpoint = getString("JAEGER_ENDPOINT", "")
	cfg.LogLevel = getString("LOG_LEVEL", "info")
	cfg.KafkaBrokers = getList("KAFKA_BROKERS")
	cfg.CORSOrigins = getList("CORS_ORIGINS")
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	cfg.DB = db.Config{
		Host:     getString("DB_HOST", "localhost"),
		User:     getString("DB_USER", "postgres"),
		Password: getString("DB_PASSWORD", ""),
		Name:     getString("DB_NAME", "bitehub"),
	}
	if cfg.DB.Port, err = getInt("DB_PORT", 5432); err != nil {
		return Config{}, err
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", 5 * time.Second, &cfg.RequestTimeout},
		{"THANK_YOU_DURATION", 3 * time.Second, &cfg.ThankYouDuration},
		{"SESSION_IDLE_TTL", 30 * time.Minute, &cfg.SessionIdleTTL},
		{"OUTBOX_POLL_INTERVAL", time.Second, &cfg.OutboxPollInterval},
		{"OUTBOX_PROCESSING_LEASE", time.Minute, &cfg.OutboxLease},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return Config{}, err
		}
	}

	if cfg.OutboxBatchSize, err = getInt("OUTBOX_BATCH_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.OutboxMaxAttempts, err = getInt("OUTBOX_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.OrderBackend {
	case BackendPostgres:
	case BackendRemote:
		if c.OrderServiceURL == "" {
			return fmt.Errorf("ORDER_SERVICE_URL is required when ORDER_BACKEND=%s", BackendRemote)
		}
	default:
		return fmt.Errorf("unknown ORDER_BACKEND %q", c.OrderBackend)
	}
	if c.ThankYouDuration <= 0 {
		return fmt.Errorf("THANK_YOU_DURATION must be positive")
	}
	return nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(getString(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
