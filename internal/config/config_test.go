package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"HTTP_PORT", "GRPC_PORT", "ORDER_BACKEND", "ORDER_SERVICE_URL", "REQUEST_TIMEOUT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "THANK_YOU_DURATION", "SESSION_IDLE_TTL",
	"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "OUTBOX_MAX_ATTEMPTS",
	"OUTBOX_PROCESSING_LEASE",
	"JAEGER_ENDPOINT", "LOG_LEVEL", "CORS_ORIGINS",
}

func clearEnv(t *testing.T) {
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, BackendPostgres, cfg.OrderBackend)
	assert.Equal(t, 3*time.Second, cfg.ThankYouDuration)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 10, cfg.OutboxBatchSize)
	assert.Equal(t, 5, cfg.OutboxMaxAttempts)
	assert.Equal(t, time.Minute, cfg.OutboxLease)
	assert.Equal(t, "order-food-status", cfg.KafkaTopic)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_BACKEND", "Remote")
	t.Setenv("ORDER_SERVICE_URL", "http://orders:9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("THANK_YOU_DURATION", "1500ms")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.OrderBackend)
	assert.Equal(t, "http://orders:9000", cfg.OrderServiceURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 1500*time.Millisecond, cfg.ThankYouDuration)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromEnv_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"DB_PORT": "abc"}, "DB_PORT"},
		{"bad duration", map[string]string{"THANK_YOU_DURATION": "soon"}, "THANK_YOU_DURATION"},
		{"non positive duration", map[string]string{"THANK_YOU_DURATION": "0s"}, "must be positive"},
		{"bad batch size", map[string]string{"OUTBOX_BATCH_SIZE": "ten"}, "OUTBOX_BATCH_SIZE"},
		{"unknown backend", map[string]string{"ORDER_BACKEND": "mongo"}, "unknown ORDER_BACKEND"},
		{"remote without url", map[string]string{"ORDER_BACKEND": "remote"}, "ORDER_SERVICE_URL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadEnv_FallsBackToExample(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "cmd", "server")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".example.env"), []byte("BITEHUB_TEST_VALUE=example\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("BITEHUB_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("BITEHUB_TEST_VALUE"))

	path := LoadEnv()
	assert.Equal(t, ".example.env", filepath.Base(path))
	assert.Equal(t, "example", os.Getenv("BITEHUB_TEST_VALUE"))
}

func TestLoadEnv_PrefersDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BITEHUB_TEST_VALUE=real\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".example.env"), []byte("BITEHUB_TEST_VALUE=example\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("BITEHUB_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("BITEHUB_TEST_VALUE"))

	assert.Equal(t, ".env", filepath.Base(LoadEnv()))
	assert.Equal(t, "real", os.Getenv("BITEHUB_TEST_VALUE"))
}
