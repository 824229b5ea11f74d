// Package credential retires push credentials the provider rejected for good.
package credential

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/repository"
)

// Manager clears invalid credentials from the identity store so later
// resolutions skip them.
type Manager struct {
	store       repository.StaffRepository
	concurrency int
	logger      *zap.Logger
	onCleared   func(n int)
}

// NewManager builds a Manager running at most concurrency invalidations at
// once. onCleared is optional (nil = no-op) and receives the number of
// identities cleared by each invalidation.
func NewManager(store repository.StaffRepository, concurrency int, logger *zap.Logger, onCleared func(int)) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	if onCleared == nil {
		onCleared = func(int) {}
	}
	return &Manager{store: store, concurrency: concurrency, logger: logger, onCleared: onCleared}
}

// Invalidate clears rc's credential from every identity that owns it.
// Rows whose token has since changed are left alone, so repeating the call
// leaves the store unchanged.
func (m *Manager) Invalidate(ctx context.Context, rc domain.Recipient, reason string) error {
	cleared := 0
	var firstErr error
	for _, id := range rc.Owners() {
		changed, err := m.store.ClearCredential(ctx, id, rc.Credential)
		if err != nil {
			m.logger.Error("failed to clear invalid push credential",
				zap.String("identity_id", id),
				zap.String("credential", rc.CredentialHint()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("clear credential for %s: %w", id, err)
			}
			continue
		}
		if changed {
			cleared++
			m.logger.Info("removed invalid push credential",
				zap.String("identity_id", id),
				zap.String("credential", rc.CredentialHint()),
				zap.String("reason", reason),
			)
		}
	}
	if cleared > 0 {
		m.onCleared(cleared)
	}
	return firstErr
}

// InvalidateAll launches one bounded task per PermanentFailure outcome and
// waits for all of them. A failing task does not cancel the others; the
// first error is returned.
func (m *Manager) InvalidateAll(ctx context.Context, outcomes []domain.DispatchOutcome) error {
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, o := range outcomes {
		if o.Kind != domain.OutcomePermanentFailure {
			continue
		}
		g.Go(func() error {
			return m.Invalidate(ctx, o.Recipient, o.Reason)
		})
	}
	return g.Wait()
}
