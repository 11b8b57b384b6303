package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("CLASSOPS_JWT_SECRET", "s3cret")
	t.Setenv("CLASSOPS_APP_PORT", ":9090")
	t.Setenv("CLASSOPS_SUMMARY_CACHE_TTL", "45s")
	t.Setenv("CLASSOPS_LOG_LEVEL", "DEBUG")
	t.Setenv("CLASSOPS_LAB_DEFAULT_TIMEZONE", "America/New_York")
	t.Setenv("CLASSOPS_RATE_LIMIT_MAX", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.JWTSecret)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 45*time.Second, cfg.SummaryCacheTTL)
	require.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.Equal(t, "America/New_York", cfg.LabLocation().String())
}

func TestDefaults(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 2*time.Minute, cfg.SummaryCacheTTL)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, 30, cfg.RateLimitMax)
	require.Equal(t, "classops", cfg.EventsChannel)
	require.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	require.Equal(t, time.UTC, cfg.LabLocation())
	require.True(t, cfg.AutoMigrate)
	require.Empty(t, cfg.RedisURL)
	require.Empty(t, cfg.NATSURL)
}

func TestValidation(t *testing.T) {
	_, err := fromViper(viper.New())
	require.ErrorContains(t, err, "jwt secret")

	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("summary.cache_ttl", "soon")
	_, err = fromViper(v)
	require.ErrorContains(t, err, "summary.cache_ttl")

	v = viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("lab.default_timezone", "Mars/Olympus")
	_, err = fromViper(v)
	require.ErrorContains(t, err, "timezone")
}
