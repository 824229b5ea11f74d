package idempotency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/notifyhub/orderpush/internal/domain"
)

// exerciseLedger runs the lifecycle every Ledger implementation must honour.
func exerciseLedger(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	if err := l.Acquire(ctx, "k1"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx, "k1"); err != domain.ErrBatchInFlight {
		t.Fatalf("expected ErrBatchInFlight, got %v", err)
	}

	if err := l.Release(ctx, "k1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := l.Acquire(ctx, "k1"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}

	if err := l.Complete(ctx, "k1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := l.Acquire(ctx, "k1"); err != domain.ErrBatchCompleted {
		t.Fatalf("expected ErrBatchCompleted, got %v", err)
	}

	if err := l.Release(ctx, "k1"); err != nil {
		t.Fatalf("release after complete: %v", err)
	}
	if err := l.Acquire(ctx, "k1"); err != domain.ErrBatchCompleted {
		t.Fatalf("release must not erase a completed batch, got %v", err)
	}

	if err := l.Acquire(ctx, "k2"); err != nil {
		t.Fatalf("independent key: %v", err)
	}
}

func TestMemoryLedger(t *testing.T) {
	exerciseLedger(t, NewMemoryLedger(time.Minute, time.Hour))
}

func TestMemoryLedger_LeaseExpiry(t *testing.T) {
	l := NewMemoryLedger(time.Minute, time.Hour)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if err := l.Acquire(ctx, "k"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := l.Acquire(ctx, "k"); err != nil {
		t.Fatalf("expected expired claim to be re-acquirable, got %v", err)
	}

	_ = l.Complete(ctx, "k")
	now = now.Add(2 * time.Hour)
	if got := l.State("k"); got != "" {
		t.Fatalf("expected completed marker to expire after retention, got %q", got)
	}
}

func TestRedisLedger_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker/container runtime unavailable: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker/container runtime unavailable: %v", err)
	}
	defer func() { _ = ctr.Terminate(ctx) }()

	host, _ := ctr.Host(ctx)
	port, err := ctr.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	exerciseLedger(t, NewRedisLedger(client, time.Minute, time.Hour))
}
