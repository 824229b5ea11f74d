// Package idempotency records which dispatch batches have already completed,
// keyed by the payload idempotency key.
package idempotency

import "context"

const (
	stateInProgress = "in_progress"
	stateCompleted  = "completed"
)

// Ledger tracks the lifecycle of a dispatch batch across redeliveries.
//
// Acquire claims key for processing. It returns domain.ErrBatchCompleted when
// the batch already finished, domain.ErrBatchInFlight when another worker
// holds the claim, or a wrapped domain.ErrUpstreamUnavailable when the ledger
// itself cannot be reached. Complete marks the batch terminal; Release drops
// an in-progress claim so a later redelivery can try again.
type Ledger interface {
	Acquire(ctx context.Context, key string) error
	Complete(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}
