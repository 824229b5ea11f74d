package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notifyhub/orderpush/internal/domain"
)

const keyPrefix = "orderpush:batch:"

// releaseScript deletes the key only while it still holds the in-progress
// marker, so a late Release never erases a completed batch.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLedger stores batch state in Redis. The in-progress claim expires
// after lease so a crashed worker does not block redelivery forever;
// completed markers are kept for retention.
type RedisLedger struct {
	client    *redis.Client
	lease     time.Duration
	retention time.Duration
}

func NewRedisLedger(client *redis.Client, lease, retention time.Duration) *RedisLedger {
	return &RedisLedger{client: client, lease: lease, retention: retention}
}

func (l *RedisLedger) Acquire(ctx context.Context, key string) error {
	k := keyPrefix + key
	acquired, err := l.client.SetNX(ctx, k, stateInProgress, l.lease).Result()
	if err != nil {
		return fmt.Errorf("%w: ledger acquire: %v", domain.ErrUpstreamUnavailable, err)
	}
	if acquired {
		return nil
	}

	state, err := l.client.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Expired between SETNX and GET; let the redelivery claim it.
		return domain.ErrBatchInFlight
	case err != nil:
		return fmt.Errorf("%w: ledger read: %v", domain.ErrUpstreamUnavailable, err)
	case state == stateCompleted:
		return domain.ErrBatchCompleted
	default:
		return domain.ErrBatchInFlight
	}
}

func (l *RedisLedger) Complete(ctx context.Context, key string) error {
	if err := l.client.Set(ctx, keyPrefix+key, stateCompleted, l.retention).Err(); err != nil {
		return fmt.Errorf("ledger complete: %w", err)
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, stateInProgress).Err(); err != nil {
		return fmt.Errorf("ledger release: %w", err)
	}
	return nil
}

// compile-time check that RedisLedger implements Ledger
var _ Ledger = (*RedisLedger)(nil)
