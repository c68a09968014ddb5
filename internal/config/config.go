package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Addr           string        // TALENTFLOW_ADDR, default ":8080"
	DBPath         string        // TALENTFLOW_DB, default "talentflow.db"
	AuthSecret     string        // TALENTFLOW_AUTH_SECRET, optional HS256 secret
	JWKSURL        string        // TALENTFLOW_JWKS_URL, optional RS256 key set
	JWTAudience    string        // TALENTFLOW_JWT_AUDIENCE, optional
	JWTIssuer      string        // TALENTFLOW_JWT_ISSUER, optional
	RedisURL       string        // TALENTFLOW_REDIS_URL, optional
	CacheTTL       time.Duration // TALENTFLOW_CACHE_TTL, default 5m
	IdempotencyTTL time.Duration // TALENTFLOW_IDEMPOTENCY_TTL, default 24h
	LogLevel       log.Level     // TALENTFLOW_LOG_LEVEL, default info
	LogJSON        bool          // TALENTFLOW_LOG_FORMAT=json
	Seed           bool          // TALENTFLOW_SEED, default true
}

// AuthEnabled reports whether bearer tokens are verified.
func (c Config) AuthEnabled() bool {
	return c.AuthSecret != "" || c.JWKSURL != ""
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Addr:        envOr("TALENTFLOW_ADDR", ":8080"),
		DBPath:      envOr("TALENTFLOW_DB", "talentflow.db"),
		AuthSecret:  os.Getenv("TALENTFLOW_AUTH_SECRET"),
		JWKSURL:     os.Getenv("TALENTFLOW_JWKS_URL"),
		JWTAudience: os.Getenv("TALENTFLOW_JWT_AUDIENCE"),
		JWTIssuer:   os.Getenv("TALENTFLOW_JWT_ISSUER"),
		RedisURL:    os.Getenv("TALENTFLOW_REDIS_URL"),
		LogJSON:     os.Getenv("TALENTFLOW_LOG_FORMAT") == "json",
	}

	var err error
	if cfg.CacheTTL, err = durationOr("TALENTFLOW_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationOr("TALENTFLOW_IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Seed, err = boolOr("TALENTFLOW_SEED", true); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = log.ParseLevel(envOr("TALENTFLOW_LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("invalid TALENTFLOW_LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func boolOr(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
