package config_test

import (
	"testing"
	"time"

	"github.com/notifyhub/orderpush/internal/config"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/orders")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.TriggerStatus != "pending" || cfg.RecipientRole != "branch_admin" {
		t.Fatalf("unexpected pipeline defaults: %q %q", cfg.TriggerStatus, cfg.RecipientRole)
	}
	if cfg.LedgerRetention != 24*time.Hour {
		t.Fatalf("expected 24h retention, got %s", cfg.LedgerRetention)
	}
	want := []time.Duration{5 * time.Second, 30 * time.Second, 120 * time.Second}
	got := cfg.RedeliveryBackoff()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("backoff[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/orders")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("INVALIDATION_CONCURRENCY", "0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.ProviderTimeout != 3*time.Second {
		t.Fatalf("expected 3s provider timeout, got %s", cfg.ProviderTimeout)
	}
	if cfg.InvalidationConcurrency != 1 {
		t.Fatalf("expected concurrency clamped to 1, got %d", cfg.InvalidationConcurrency)
	}
}
