package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/credential"
	"github.com/notifyhub/orderpush/internal/dispatcher"
	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/gate"
	"github.com/notifyhub/orderpush/internal/idempotency"
	"github.com/notifyhub/orderpush/internal/metrics"
	"github.com/notifyhub/orderpush/internal/payload"
	"github.com/notifyhub/orderpush/internal/provider"
	"github.com/notifyhub/orderpush/internal/repository"
	"github.com/notifyhub/orderpush/internal/resolver"
)

const (
	TriggerCreated = "created"
	TriggerUpdated = "updated"
)

// Dependencies are the collaborators owned by the process bootstrap.
type Dependencies struct {
	Staff       repository.StaffRepository
	Ledger      idempotency.Ledger
	Resolver    *resolver.Resolver
	Builder     *payload.Builder
	Dispatcher  *dispatcher.Dispatcher
	Credentials *credential.Manager
	Provider    provider.PushProvider
	Hooks       metrics.PipelineHooks
	Logger      *zap.Logger
}

// DispatchService runs the order notification pipeline.
// HTTP handlers and Kafka workers depend on this service, not on each other.
type DispatchService struct {
	triggerStatus string
	staff         repository.StaffRepository
	ledger        idempotency.Ledger
	resolver      *resolver.Resolver
	builder       *payload.Builder
	dispatcher    *dispatcher.Dispatcher
	credentials   *credential.Manager
	prov          provider.PushProvider
	hooks         metrics.PipelineHooks
	logger        *zap.Logger
}

func NewDispatchService(triggerStatus string, deps Dependencies) *DispatchService {
	h := deps.Hooks
	if h.OnReceived == nil {
		h.OnReceived = func(string) {}
	}
	if h.OnSkipped == nil {
		h.OnSkipped = func(domain.SkipReason) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func() {}
	}
	if h.OnDispatched == nil {
		h.OnDispatched = func([]domain.DispatchOutcome, time.Duration) {}
	}
	return &DispatchService{
		triggerStatus: triggerStatus,
		staff:         deps.Staff,
		ledger:        deps.Ledger,
		resolver:      deps.Resolver,
		builder:       deps.Builder,
		dispatcher:    deps.Dispatcher,
		credentials:   deps.Credentials,
		prov:          deps.Provider,
		hooks:         h,
		logger:        deps.Logger,
	}
}

// HandleCreated adapts a record-created trigger. Any prior state in the
// change event is ignored.
func (s *DispatchService) HandleCreated(ctx context.Context, ce domain.ChangeEvent) (domain.Result, error) {
	if err := ce.Validate(); err != nil {
		return domain.Result{}, err
	}
	s.hooks.OnReceived(TriggerCreated)
	return s.Process(ctx, domain.Event{ID: ce.ID, After: ce.After, OccurredAt: ce.OccurredAt()})
}

// HandleUpdated adapts a record-updated trigger.
func (s *DispatchService) HandleUpdated(ctx context.Context, ce domain.ChangeEvent) (domain.Result, error) {
	if err := ce.Validate(); err != nil {
		return domain.Result{}, err
	}
	s.hooks.OnReceived(TriggerUpdated)
	return s.Process(ctx, domain.Event{ID: ce.ID, Before: ce.Before, After: ce.After, OccurredAt: ce.OccurredAt()})
}

// HandleChange routes a change-feed record to the matching adapter: no prior
// state means the record was created.
func (s *DispatchService) HandleChange(ctx context.Context, ce domain.ChangeEvent) (domain.Result, error) {
	if ce.Before == nil {
		return s.HandleCreated(ctx, ce)
	}
	return s.HandleUpdated(ctx, ce)
}

// Process runs one event through gate, ledger, resolver, builder, dispatcher
// and credential cleanup.
//
// Informational no-ops (gate skip, no recipients, batch already completed)
// return a Result with Skipped set and a nil error. ErrUpstreamUnavailable
// and ErrBatchInFlight mean nothing user-visible was committed and the
// trigger should be redelivered. Per-recipient failures never fail the event.
func (s *DispatchService) Process(ctx context.Context, ev domain.Event) (domain.Result, error) {
	res := domain.Result{EventID: ev.ID, Stage: domain.StageReceived}
	log := s.logger.With(zap.String("event_id", ev.ID))

	res.Stage = domain.StageGated
	if !gate.ShouldDispatch(ev, s.triggerStatus) {
		log.Debug("event does not enter trigger status, skipping")
		return s.skip(res, domain.SkipGate), nil
	}

	key := payload.IdempotencyKey(ev.ID)
	res.IdempotencyKey = key
	log = log.With(zap.String("idempotency_key", key))

	if err := s.ledger.Acquire(ctx, key); err != nil {
		if errors.Is(err, domain.ErrBatchCompleted) {
			log.Info("batch already dispatched, skipping")
			return s.skip(res, domain.SkipAlreadyDispatched), nil
		}
		log.Warn("could not claim dispatch batch", zap.Error(err))
		s.hooks.OnFailed()
		return res, err
	}

	keys := ev.RoutingKeys()
	recipients, err := s.resolver.Resolve(ctx, keys)
	if err != nil {
		s.release(ctx, key, log)
		log.Error("recipient resolution failed", zap.Strings("routing_keys", keys), zap.Error(err))
		s.hooks.OnFailed()
		return res, err
	}
	res.Stage = domain.StageResolved

	if len(recipients) == 0 {
		s.release(ctx, key, log)
		log.Info("no eligible recipients", zap.Strings("routing_keys", keys))
		return s.skip(res, domain.SkipNoRecipients), nil
	}

	p := s.builder.Build(ev)
	res.Stage = domain.StageBuilt

	log.Info("sending data-only notification",
		zap.Int("recipients", len(recipients)),
		zap.Strings("routing_keys", keys),
	)
	start := time.Now()
	outcomes, err := s.dispatcher.Send(ctx, domain.DispatchBatch{Key: key, Payload: p, Recipients: recipients})
	s.hooks.OnDispatched(outcomes, time.Since(start))
	res.Tally(outcomes)
	if err != nil {
		s.release(ctx, key, log)
		log.Error("batch dispatch failed, awaiting redelivery", zap.Error(err))
		s.hooks.OnFailed()
		return res, err
	}
	res.Stage = domain.StageDispatched

	for _, o := range outcomes {
		if o.Kind == domain.OutcomeDelivered {
			continue
		}
		log.Warn("failure sending to recipient",
			zap.String("identity_id", o.Recipient.IdentityID),
			zap.String("credential", o.Recipient.CredentialHint()),
			zap.String("kind", string(o.Kind)),
			zap.String("reason", o.Reason),
		)
	}

	if err := s.credentials.InvalidateAll(ctx, outcomes); err != nil {
		log.Error("credential cleanup incomplete", zap.Error(err))
	}
	res.Stage = domain.StageCleaned

	// The batch is terminal now even if some recipients were not reached.
	if err := s.ledger.Complete(context.WithoutCancel(ctx), key); err != nil {
		log.Error("failed to record completed batch", zap.Error(err))
	}
	res.Stage = domain.StageDone

	log.Info("notification process completed",
		zap.Int("delivered", res.Delivered),
		zap.Int("transient", res.Transient),
		zap.Int("permanent", res.Permanent),
	)
	return res, nil
}

// SendTest sends the fixed test payload to one identity's credential.
func (s *DispatchService) SendTest(ctx context.Context, identityID string) (provider.SendResult, error) {
	if identityID == "" {
		return provider.SendResult{}, domain.ErrMissingIdentity
	}
	log := s.logger.With(zap.String("identity_id", identityID))

	staff, err := s.staff.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return provider.SendResult{}, err
		}
		return provider.SendResult{}, fmt.Errorf("look up identity: %w", err)
	}
	if staff.PushToken == nil || *staff.PushToken == "" {
		return provider.SendResult{}, domain.ErrNoCredential
	}
	token := *staff.PushToken

	result, err := provider.SendOne(ctx, s.prov, s.builder.Test(), token, provider.SendOptions{
		Priority: provider.PriorityHigh,
		WakeApp:  true,
	})
	if err != nil {
		log.Error("error sending test notification", zap.String("credential", domain.TokenHint(token)), zap.Error(err))
		if result.Err != nil && dispatcher.Classify(result.Err) == domain.OutcomePermanentFailure {
			rc := domain.Recipient{IdentityID: identityID, Credential: token, Active: staff.Active}
			if cerr := s.credentials.Invalidate(ctx, rc, result.Err.Error()); cerr != nil {
				log.Error("credential cleanup failed", zap.Error(cerr))
			}
		}
		return result, fmt.Errorf("send test notification: %w", err)
	}
	log.Info("test notification sent", zap.String("provider_msg_id", result.MessageID))
	return result, nil
}

func (s *DispatchService) skip(res domain.Result, reason domain.SkipReason) domain.Result {
	res.Skipped = reason
	s.hooks.OnSkipped(reason)
	return res
}

func (s *DispatchService) release(ctx context.Context, key string, log *zap.Logger) {
	if err := s.ledger.Release(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("failed to release dispatch claim", zap.Error(err))
	}
}
