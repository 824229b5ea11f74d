package repository

import (
	"context"

	"github.com/notifyhub/orderpush/internal/domain"
)

// StaffRepository is the identity store: staff members, their roles,
// branch assignments and registered push credentials.
// The pgx implementation is in pg_staff_repo.go.
// Tests use a hand-written mock (mock_staff_repo.go).
type StaffRepository interface {
	// QueryActiveRecipients returns one row per active staff member with the
	// given role assigned to at least one of routingKeys. Credential is the
	// raw stored token and may be empty.
	QueryActiveRecipients(ctx context.Context, role string, routingKeys []string) ([]domain.Recipient, error)
	GetByID(ctx context.Context, id string) (*domain.StaffRecord, error)
	// ClearCredential removes credential from identityID if it is still the
	// stored token, stamping the invalidation time. It reports whether a row
	// changed; clearing an already-cleared credential is a no-op.
	ClearCredential(ctx context.Context, identityID, credential string) (bool, error)
	Upsert(ctx context.Context, s *domain.StaffRecord) error
}
