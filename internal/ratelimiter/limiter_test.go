package ratelimiter_test

import (
	"context"
	"testing"

	"github.com/notifyhub/orderpush/internal/ratelimiter"
)

func TestProviderLimiter_BurstThenCancel(t *testing.T) {
	l := ratelimiter.New(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: unexpected error %v", i, err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Wait(cancelled); err == nil {
		t.Fatal("expected error once the burst is spent and ctx is cancelled")
	}
}
