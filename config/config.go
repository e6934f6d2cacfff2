package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// global config instance
var global *Config

// Config global configuration (loaded from .env)
// Only truly global settings live here; per-bot behavior is decided by the
// remote automation engine.
type Config struct {
	// Service
	APIServerPort       int
	JWTSecret           string
	RegistrationEnabled bool

	// Remote automation engine
	EngineBaseURL string
	EngineTimeout time.Duration

	// Telemetry cadences. Sub-second values are a configuration error and are
	// clamped to MinPollInterval at load time.
	LogPollInterval   time.Duration
	OrderPollInterval time.Duration
	ReconcileInterval time.Duration

	// Entitlement
	FreePlanLimit int
}

// MinPollInterval is the floor for any polling cadence. The control plane
// must never tight-loop against the engine or the order store.
const MinPollInterval = time.Second

// Init initializes global configuration (loaded from .env)
func Init() {
	cfg := &Config{
		APIServerPort:       8080,
		RegistrationEnabled: true,
		EngineBaseURL:       "http://localhost:8000",
		EngineTimeout:       5 * time.Second,
		LogPollInterval:     5 * time.Second,
		OrderPollInterval:   5 * time.Second,
		ReconcileInterval:   60 * time.Second,
		FreePlanLimit:       3,
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = strings.TrimSpace(v)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "default-jwt-secret-change-in-production"
	}

	if v := os.Getenv("REGISTRATION_ENABLED"); v != "" {
		cfg.RegistrationEnabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("API_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.APIServerPort = port
		}
	}

	if v := os.Getenv("ENGINE_BASE_URL"); v != "" {
		cfg.EngineBaseURL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	if v := os.Getenv("ENGINE_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.EngineTimeout = time.Duration(secs) * time.Second
		}
	}

	cfg.LogPollInterval = pollInterval("LOG_POLL_INTERVAL_MS", cfg.LogPollInterval)
	cfg.OrderPollInterval = pollInterval("ORDER_POLL_INTERVAL_MS", cfg.OrderPollInterval)
	cfg.ReconcileInterval = pollInterval("RECONCILE_INTERVAL_MS", cfg.ReconcileInterval)

	if v := os.Getenv("FREE_PLAN_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			cfg.FreePlanLimit = limit
		}
	}

	global = cfg
}

// pollInterval reads a millisecond env value and clamps it to MinPollInterval
func pollInterval(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return fallback
	}
	d := time.Duration(ms) * time.Millisecond
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// Get returns global configuration
func Get() *Config {
	if global == nil {
		Init()
	}
	return global
}
