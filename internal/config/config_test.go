package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"REDIS_URL":  "redis://localhost:6379/0",
		"JWT_SECRET": "test-secret",

		"STORE_DRIVER":       "",
		"PORT":               "",
		"DUE_DAYS_DEFAULT":   "",
		"MIN_MARKUP_PERCENT": "",
		"CART_TTL":           "",
	})
	require.NoError(t, err)
	require.Equal(t, DriverRedis, cfg.StoreDriver)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 30, cfg.DueDaysDefault)
	require.Equal(t, 115, cfg.MinMarkupPercent)
	require.Equal(t, 2*time.Hour, cfg.CartTTL)
	require.Equal(t, "60-M", cfg.RateLimitWrites)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
		"STORE_DRIVER": "mongo",
	})
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
		"STORE_DRIVER": "postgres",
		"DATABASE_URL": "",
	})
	require.Error(t, err)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"REDIS_URL":  "redis://localhost:6379/0",
		"JWT_SECRET": "",
	})
	require.Error(t, err)
}
