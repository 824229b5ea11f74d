package dispatcher_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/dispatcher"
	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/provider"
	"github.com/notifyhub/orderpush/internal/ratelimiter"
)

// fakeProvider answers per token from a code table.
type fakeProvider struct {
	codes   map[string]string
	err     error
	reverse bool

	calls int
	opts  provider.SendOptions
}

func (f *fakeProvider) SendBatch(_ context.Context, _ domain.Payload, tokens []string, opts provider.SendOptions) ([]provider.SendResult, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	results := make([]provider.SendResult, 0, len(tokens))
	for _, tok := range tokens {
		if code, ok := f.codes[tok]; ok {
			if code == "omit" {
				continue
			}
			results = append(results, provider.SendResult{Token: tok, Err: &provider.ProviderError{Code: code, Message: "failed"}})
			continue
		}
		results = append(results, provider.SendResult{Token: tok, MessageID: "m-" + tok})
	}
	if f.reverse {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}
	return results, nil
}

func batchOf(n int) domain.DispatchBatch {
	b := domain.DispatchBatch{Key: "k"}
	for i := 0; i < n; i++ {
		b.Recipients = append(b.Recipients, domain.Recipient{
			IdentityID: fmt.Sprintf("staff-%d", i),
			Credential: fmt.Sprintf("tok-%d", i),
			Active:     true,
		})
	}
	return b
}

func newDispatcher(p provider.PushProvider) *dispatcher.Dispatcher {
	return dispatcher.New(p, ratelimiter.New(1000), zap.NewNop())
}

func TestDispatcher_PartialPermanentFailures(t *testing.T) {
	const n, k = 10, 3
	p := &fakeProvider{codes: map[string]string{
		"tok-1": "messaging/registration-token-not-registered",
		"tok-4": "messaging/invalid-registration-token",
		"tok-7": "messaging/invalid-argument",
		"tok-8": "messaging/internal-error",
	}}

	outcomes, err := newDispatcher(p).Send(context.Background(), batchOf(n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != n {
		t.Fatalf("expected %d outcomes, got %d", n, len(outcomes))
	}

	var permanent, transient, delivered int
	for i, o := range outcomes {
		if o.Recipient.Credential != fmt.Sprintf("tok-%d", i) {
			t.Fatalf("outcome %d out of order: %+v", i, o)
		}
		switch o.Kind {
		case domain.OutcomePermanentFailure:
			permanent++
		case domain.OutcomeTransientFailure:
			transient++
		case domain.OutcomeDelivered:
			delivered++
			if o.ProviderMessageID == "" {
				t.Fatalf("expected message id for delivered outcome %d", i)
			}
		}
	}
	if permanent != k || transient != 1 || delivered != n-k-1 {
		t.Fatalf("unexpected split: permanent=%d transient=%d delivered=%d", permanent, transient, delivered)
	}
	if p.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", p.calls)
	}
	if p.opts.Priority != provider.PriorityHigh || !p.opts.WakeApp {
		t.Fatalf("expected high priority wake-app delivery, got %+v", p.opts)
	}
}

func TestDispatcher_CallFailureMarksAllTransient(t *testing.T) {
	p := &fakeProvider{err: context.DeadlineExceeded}

	outcomes, err := newDispatcher(p).Send(context.Background(), batchOf(4))
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Kind != domain.OutcomeTransientFailure {
			t.Fatalf("expected transient failure, got %+v", o)
		}
	}
}

func TestDispatcher_MissingAndReorderedResults(t *testing.T) {
	p := &fakeProvider{reverse: true, codes: map[string]string{"tok-2": "omit"}}

	outcomes, err := newDispatcher(p).Send(context.Background(), batchOf(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcomes[0].Kind != domain.OutcomeDelivered || outcomes[0].ProviderMessageID != "m-tok-0" {
		t.Fatalf("unexpected outcome 0: %+v", outcomes[0])
	}
	if outcomes[1].Kind != domain.OutcomeDelivered || outcomes[1].ProviderMessageID != "m-tok-1" {
		t.Fatalf("unexpected outcome 1: %+v", outcomes[1])
	}
	if outcomes[2].Kind != domain.OutcomeTransientFailure {
		t.Fatalf("expected missing response to be transient, got %+v", outcomes[2])
	}
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	p := &fakeProvider{}
	outcomes, err := newDispatcher(p).Send(context.Background(), domain.DispatchBatch{})
	if err != nil || len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %v %v", outcomes, err)
	}
	if p.calls != 0 {
		t.Fatal("expected no provider call for an empty batch")
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]domain.OutcomeKind{
		"UNREGISTERED":                    domain.OutcomePermanentFailure,
		"INVALID_ARGUMENT":                domain.OutcomePermanentFailure,
		"QUOTA_EXCEEDED":                  domain.OutcomeTransientFailure,
		"messaging/server-unavailable":    domain.OutcomeTransientFailure,
		"messaging/message-rate-exceeded": domain.OutcomeTransientFailure,
	}
	for code, want := range tests {
		if got := dispatcher.Classify(&provider.ProviderError{Code: code}); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", code, got, want)
		}
	}
	if dispatcher.Classify(nil) != domain.OutcomeDelivered {
		t.Fatal("expected nil error to classify as delivered")
	}
}
