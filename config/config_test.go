package config

import (
	"testing"
	"time"
)

func TestPollIntervalClamped(t *testing.T) {
	// A sub-second cadence would hammer the engine; it gets clamped
	t.Setenv("LOG_POLL_INTERVAL_MS", "100")
	Init()
	if got := Get().LogPollInterval; got != MinPollInterval {
		t.Errorf("expected clamp to %v, got %v", MinPollInterval, got)
	}
}

func TestPollIntervalHonored(t *testing.T) {
	t.Setenv("ORDER_POLL_INTERVAL_MS", "2500")
	Init()
	if got := Get().OrderPollInterval; got != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", got)
	}
}

func TestPollIntervalInvalidFallsBack(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL_MS", "banana")
	Init()
	if got := Get().ReconcileInterval; got != 60*time.Second {
		t.Errorf("expected the default 60s, got %v", got)
	}
}

func TestDefaults(t *testing.T) {
	Init()
	cfg := Get()
	if cfg.APIServerPort != 8080 {
		t.Errorf("unexpected default port %d", cfg.APIServerPort)
	}
	if cfg.FreePlanLimit != 3 {
		t.Errorf("unexpected free plan limit %d", cfg.FreePlanLimit)
	}
	if !cfg.RegistrationEnabled {
		t.Error("registration should default to enabled")
	}
}
