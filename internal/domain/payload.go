package domain

import "time"

// Payload is a transport-agnostic, data-only notification.
// IssuedAt is advisory and excluded from IdempotencyKey.
type Payload struct {
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data"`
	Version        int               `json:"version"`
	IdempotencyKey string            `json:"idempotency_key"`
	IssuedAt       time.Time         `json:"issued_at"`
}

// Wire flattens the payload into the string map sent to devices.
// The app renders title and body itself.
func (p Payload) Wire() map[string]string {
	out := make(map[string]string, len(p.Data)+3)
	for k, v := range p.Data {
		out[k] = v
	}
	out["title"] = p.Title
	out["body"] = p.Body
	if !p.IssuedAt.IsZero() {
		out["timestamp"] = p.IssuedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// DispatchBatch is a payload addressed to a set of recipients under one key.
type DispatchBatch struct {
	Key        string
	Payload    Payload
	Recipients []Recipient
}
