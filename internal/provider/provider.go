package provider

import (
	"context"
	"fmt"

	"github.com/notifyhub/orderpush/internal/domain"
)

// Priority is the delivery urgency requested from the provider.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// SendOptions carries per-call delivery semantics.
// WakeApp asks the platform to wake a backgrounded app for a data-only message.
type SendOptions struct {
	Priority Priority
	WakeApp  bool
}

// ProviderError is a per-token error reported by the provider.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SendResult is the provider's response for one token.
type SendResult struct {
	Token     string
	MessageID string
	Err       *ProviderError
}

// PushProvider abstracts the external push delivery service.
// SendBatch returns an error only when the call as a whole failed; per-token
// failures are reported in the results. Mocking this interface in tests gives
// full control over provider behaviour without making real HTTP calls.
type PushProvider interface {
	SendBatch(ctx context.Context, p domain.Payload, tokens []string, opts SendOptions) ([]SendResult, error)
}

// SendOne delivers p to a single token.
func SendOne(ctx context.Context, prov PushProvider, p domain.Payload, token string, opts SendOptions) (SendResult, error) {
	results, err := prov.SendBatch(ctx, p, []string{token}, opts)
	if err != nil {
		return SendResult{}, err
	}
	if len(results) == 0 {
		return SendResult{}, fmt.Errorf("provider returned no result for token")
	}
	if results[0].Err != nil {
		return results[0], results[0].Err
	}
	return results[0], nil
}
