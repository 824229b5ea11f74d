package domain

import "time"

// Event is an immutable snapshot of an order transition.
// Before is nil for creations; After is nil for deletions.
type Event struct {
	ID         string
	Before     *Order
	After      *Order
	OccurredAt time.Time
}

// RoutingKeys returns the keys of the new state.
func (e Event) RoutingKeys() []string {
	return e.After.Keys()
}

// ChangeEvent is the wire shape delivered by the document change feed,
// over HTTP or Kafka.
type ChangeEvent struct {
	ID     string     `json:"id"`
	Before *Order     `json:"before,omitempty"`
	After  *Order     `json:"after,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
}

// Validate checks the fields every trigger adapter depends on.
func (c *ChangeEvent) Validate() error {
	if c.ID == "" {
		return ErrInvalidEvent
	}
	return nil
}

// OccurredAt returns the change time, falling back to now when the feed
// did not supply one.
func (c *ChangeEvent) OccurredAt() time.Time {
	if c.Time != nil {
		return c.Time.UTC()
	}
	return time.Now().UTC()
}
