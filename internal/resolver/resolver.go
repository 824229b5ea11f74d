// Package resolver finds the staff devices an order event should reach.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/repository"
)

// maxCredentialLen bounds what we accept as a device token.
const maxCredentialLen = 4096

// Resolver queries the identity store for one recipient class.
type Resolver struct {
	store  repository.StaffRepository
	role   string
	logger *zap.Logger
}

func New(store repository.StaffRepository, role string, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, role: role, logger: logger}
}

// Resolve returns one Recipient per distinct usable credential among active
// staff assigned to any of routingKeys. Identities without a usable
// credential are logged and dropped. Any store failure yields
// ErrUpstreamUnavailable and no recipients, so the caller can re-run the
// whole event later.
func (r *Resolver) Resolve(ctx context.Context, routingKeys []string) ([]domain.Recipient, error) {
	if len(routingKeys) == 0 {
		return nil, nil
	}

	rows, err := r.store.QueryActiveRecipients(ctx, r.role, routingKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: identity store: %v", domain.ErrUpstreamUnavailable, err)
	}

	byCredential := make(map[string]int, len(rows))
	recipients := make([]domain.Recipient, 0, len(rows))
	for _, row := range rows {
		if !row.Active {
			continue
		}
		// Never trimmed: ClearCredential compares the stored value exactly.
		cred := row.Credential
		if !usable(cred) {
			r.logger.Info("no valid push credential for staff",
				zap.String("identity_id", row.IdentityID))
			continue
		}
		if i, dup := byCredential[cred]; dup {
			recipients[i].SharedWith = append(recipients[i].SharedWith, row.IdentityID)
			continue
		}
		byCredential[cred] = len(recipients)
		recipients = append(recipients, domain.Recipient{
			IdentityID: row.IdentityID,
			Credential: cred,
			Active:     true,
		})
	}

	r.logger.Debug("resolved recipients",
		zap.Strings("routing_keys", routingKeys),
		zap.Int("identities", len(rows)),
		zap.Int("credentials", len(recipients)),
	)
	return recipients, nil
}

func usable(cred string) bool {
	if cred == "" || len(cred) > maxCredentialLen {
		return false
	}
	return strings.IndexFunc(cred, unicode.IsSpace) < 0
}
