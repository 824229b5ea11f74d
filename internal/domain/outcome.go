package domain

// OutcomeKind classifies the result of sending to one recipient.
type OutcomeKind string

const (
	OutcomeDelivered        OutcomeKind = "delivered"
	OutcomeTransientFailure OutcomeKind = "transient_failure"
	OutcomePermanentFailure OutcomeKind = "permanent_failure"
)

// DispatchOutcome is the per-recipient result of a batch send.
type DispatchOutcome struct {
	Recipient         Recipient   `json:"recipient"`
	Kind              OutcomeKind `json:"kind"`
	Reason            string      `json:"reason,omitempty"`
	ProviderMessageID string      `json:"provider_message_id,omitempty"`
}

// Stage tracks how far an event travelled through the pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageGated      Stage = "gated"
	StageResolved   Stage = "resolved"
	StageBuilt      Stage = "built"
	StageDispatched Stage = "dispatched"
	StageCleaned    Stage = "cleaned"
	StageDone       Stage = "done"
)

// SkipReason explains an informational no-op.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipGate              SkipReason = "gate"
	SkipNoRecipients      SkipReason = "no_recipients"
	SkipAlreadyDispatched SkipReason = "already_dispatched"
)

// Result summarises the processing of one event.
type Result struct {
	EventID        string            `json:"event_id"`
	Stage          Stage             `json:"stage"`
	Skipped        SkipReason        `json:"skipped,omitempty"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Outcomes       []DispatchOutcome `json:"outcomes,omitempty"`
	Delivered      int               `json:"delivered"`
	Transient      int               `json:"transient"`
	Permanent      int               `json:"permanent"`
}

// Tally counts outcomes by kind into r.
func (r *Result) Tally(outcomes []DispatchOutcome) {
	r.Outcomes = outcomes
	r.Delivered, r.Transient, r.Permanent = 0, 0, 0
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeDelivered:
			r.Delivered++
		case OutcomeTransientFailure:
			r.Transient++
		case OutcomePermanentFailure:
			r.Permanent++
		}
	}
}
