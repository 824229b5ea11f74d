// Package gate decides whether an order transition should notify staff.
package gate

import "github.com/notifyhub/orderpush/internal/domain"

// ShouldDispatch reports whether ev moved the order into triggerStatus.
//
// A record that was already in triggerStatus does not dispatch again when
// unrelated fields change, and deletions (no new state) never dispatch.
func ShouldDispatch(ev domain.Event, triggerStatus string) bool {
	if ev.After == nil || ev.After.Status != triggerStatus {
		return false
	}
	return ev.Before == nil || ev.Before.Status != triggerStatus
}
