package domain

import "time"

// Recipient is a push credential together with the identities that own it.
// Two staff members sharing a device collapse into one Recipient.
type Recipient struct {
	IdentityID string   `json:"identity_id"`
	SharedWith []string `json:"shared_with,omitempty"`
	Credential string   `json:"-"`
	Active     bool     `json:"active"`
}

// Owners returns every identity that registered this credential.
func (r Recipient) Owners() []string {
	return append([]string{r.IdentityID}, r.SharedWith...)
}

// CredentialHint returns a log-safe prefix of the credential.
func (r Recipient) CredentialHint() string {
	return TokenHint(r.Credential)
}

// TokenHint truncates a device token for log output.
func TokenHint(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}

// StaffRecord is one row of the identity store.
type StaffRecord struct {
	ID                   string     `json:"id"`
	Role                 string     `json:"role"`
	Active               bool       `json:"is_active"`
	BranchIDs            []string   `json:"branch_ids"`
	PushToken            *string    `json:"-"`
	PushTokenInvalidated *time.Time `json:"push_token_invalidated_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
