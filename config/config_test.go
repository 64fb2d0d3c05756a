package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Store.TransitionTimeout != 30*time.Second {
		t.Errorf("expected 30s transition timeout, got %v", cfg.Store.TransitionTimeout)
	}
	if cfg.CarryForward.DefaultEnabled {
		t.Error("expected carry-forward disabled by default")
	}
	if cfg.CarryForward.SuppressionMonths != 12 {
		t.Errorf("expected 12 suppression months, got %d", cfg.CarryForward.SuppressionMonths)
	}
	if cfg.Remote.Backend != RemoteBackendRedis {
		t.Errorf("expected redis backend, got %s", cfg.Remote.Backend)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/ledger-test.db")
	t.Setenv("STORE_TRANSITION_TIMEOUT", "2s")
	t.Setenv("CARRY_FORWARD_DEFAULT_ENABLED", "true")
	t.Setenv("SYNC_TOGGLE_RATE_LIMIT", "not-a-number")

	cfg := Load()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"store path", cfg.Store.Path, "/tmp/ledger-test.db"},
		{"transition timeout", cfg.Store.TransitionTimeout, 2 * time.Second},
		{"carry-forward default", cfg.CarryForward.DefaultEnabled, true},
		{"invalid int falls back", cfg.Sync.RateLimit, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
