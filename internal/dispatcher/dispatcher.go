// Package dispatcher sends one payload to many devices in a single provider
// call and classifies what happened to each of them.
package dispatcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/provider"
	"github.com/notifyhub/orderpush/internal/ratelimiter"
)

// permanentCodes are provider error codes meaning the credential will never
// work again.
var permanentCodes = map[string]struct{}{
	"messaging/registration-token-not-registered": {},
	"messaging/invalid-registration-token":        {},
	"messaging/invalid-argument":                  {},
	"UNREGISTERED":                                {},
	"INVALID_ARGUMENT":                            {},
}

// Dispatcher is stateless apart from the shared provider limiter.
// It makes at most one provider call per batch and never retries.
type Dispatcher struct {
	prov    provider.PushProvider
	limiter *ratelimiter.ProviderLimiter
	logger  *zap.Logger
}

func New(prov provider.PushProvider, limiter *ratelimiter.ProviderLimiter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{prov: prov, limiter: limiter, logger: logger}
}

// Classify maps a per-token provider error to an outcome kind.
func Classify(err *provider.ProviderError) domain.OutcomeKind {
	if err == nil {
		return domain.OutcomeDelivered
	}
	if _, ok := permanentCodes[err.Code]; ok {
		return domain.OutcomePermanentFailure
	}
	return domain.OutcomeTransientFailure
}

// Send delivers batch.Payload to every recipient and returns exactly one
// outcome per recipient, in batch order.
//
// When the provider call itself fails (timeout, unreachable, limiter wait
// cancelled) every outcome is TransientFailure and the returned error wraps
// ErrUpstreamUnavailable.
func (d *Dispatcher) Send(ctx context.Context, batch domain.DispatchBatch) ([]domain.DispatchOutcome, error) {
	outcomes := make([]domain.DispatchOutcome, len(batch.Recipients))
	if len(batch.Recipients) == 0 {
		return outcomes, nil
	}

	tokens := make([]string, len(batch.Recipients))
	for i, rc := range batch.Recipients {
		tokens[i] = rc.Credential
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return failAll(batch.Recipients, outcomes, err),
				fmt.Errorf("%w: provider limiter: %v", domain.ErrUpstreamUnavailable, err)
		}
	}

	results, err := d.prov.SendBatch(ctx, batch.Payload, tokens, provider.SendOptions{
		Priority: provider.PriorityHigh,
		WakeApp:  true,
	})
	if err != nil {
		d.logger.Error("batch send failed",
			zap.String("idempotency_key", batch.Key),
			zap.Int("recipients", len(tokens)),
			zap.Error(err),
		)
		return failAll(batch.Recipients, outcomes, err),
			fmt.Errorf("%w: push provider: %v", domain.ErrUpstreamUnavailable, err)
	}

	// Results normally come back in token order; fall back to matching by
	// token when the provider reorders or omits entries.
	byToken := make(map[string]provider.SendResult, len(results))
	for _, r := range results {
		byToken[r.Token] = r
	}

	for i, rc := range batch.Recipients {
		var (
			res   provider.SendResult
			found bool
		)
		if i < len(results) && results[i].Token == rc.Credential {
			res, found = results[i], true
		} else {
			res, found = byToken[rc.Credential]
		}

		out := domain.DispatchOutcome{Recipient: rc}
		switch {
		case !found:
			out.Kind = domain.OutcomeTransientFailure
			out.Reason = "no response from provider for credential"
		default:
			out.Kind = Classify(res.Err)
			out.ProviderMessageID = res.MessageID
			if res.Err != nil {
				out.Reason = res.Err.Error()
			}
		}
		outcomes[i] = out
	}
	return outcomes, nil
}

func failAll(recipients []domain.Recipient, outcomes []domain.DispatchOutcome, err error) []domain.DispatchOutcome {
	for i, rc := range recipients {
		outcomes[i] = domain.DispatchOutcome{
			Recipient: rc,
			Kind:      domain.OutcomeTransientFailure,
			Reason:    err.Error(),
		}
	}
	return outcomes
}
