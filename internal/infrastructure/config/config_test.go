package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iho/loanex/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SCHEDULER_TIMEZONE", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotEmpty(t, cfg.DatabaseURL)
	require.Empty(t, cfg.JWTSecret)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.True(t, cfg.SchedulerEnabled)
	require.Equal(t, "Europe/Moscow", cfg.SchedulerTimezone)
	require.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("STATS_CACHE_TTL", "2m")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "postgres://example", cfg.DatabaseURL)
	require.Equal(t, "redis://example", cfg.RedisURL)
	require.Equal(t, "9090", cfg.HTTPPort)
	require.Equal(t, 45*time.Second, cfg.DatabaseTimeout)
	require.Equal(t, "top-secret", cfg.JWTSecret)
	require.True(t, cfg.AuthEnabled)
	require.False(t, cfg.SchedulerEnabled)
	require.Equal(t, 2*time.Minute, cfg.StatsCacheTTL)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLocationFallback(t *testing.T) {
	cfg := &config.Config{SchedulerTimezone: "Not/AZone"}
	require.Equal(t, time.UTC, cfg.Location())

	cfg.SchedulerTimezone = "UTC"
	require.Equal(t, "UTC", cfg.Location().String())
}
