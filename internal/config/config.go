package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	EventsChannel       string
	JWTSecret           string
	SummaryCacheTTL     time.Duration
	LogLevel            zerolog.Level
	RateLimitMax        int
	RateLimitWindow     time.Duration
	LabDefaultTimezone  string
	CORSAllowOrigins    string
	HTTPAccessLog       bool
	AutoMigrate         bool
	ShutdownGracePeriod time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// LabLocation resolves the configured fallback timezone for lab schedules.
func (c Config) LabLocation() *time.Location {
	loc, err := time.LoadLocation(c.LabDefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSOPS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "ClassOps API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "classops")
	v.SetDefault("summary.cache_ttl", "2m")
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("lab.default_timezone", "UTC")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("http.access_log", false)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("shutdown.grace_period", "5s")

	ttl, err := parseDuration(v, "summary.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}
	grace, err := parseDuration(v, "shutdown.grace_period")
	if err != nil {
		return Config{}, err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("log.level")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		EventsChannel:       v.GetString("events.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		SummaryCacheTTL:     ttl,
		LogLevel:            level,
		RateLimitMax:        v.GetInt("rate_limit.max"),
		RateLimitWindow:     window,
		LabDefaultTimezone:  v.GetString("lab.default_timezone"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		HTTPAccessLog:       v.GetBool("http.access_log"),
		AutoMigrate:         v.GetBool("database.auto_migrate"),
		ShutdownGracePeriod: grace,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if _, err := time.LoadLocation(cfg.LabDefaultTimezone); err != nil {
		return Config{}, fmt.Errorf("invalid lab default timezone: %w", err)
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}
