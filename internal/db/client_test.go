package db

import (
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "bitehub", Password: "secret", Name: "orders"}

	assert.Equal(t,
		"host=localhost port=5432 user=bitehub password=secret dbname=orders sslmode=disable",
		cfg.DSN())

	parsed, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "orders", parsed.ConnConfig.Database)
	assert.Equal(t, uint16(5432), parsed.ConnConfig.Port)
}
