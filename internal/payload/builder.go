// Package payload turns order events into data-only notification payloads.
package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/notifyhub/orderpush/internal/domain"
)

// SchemaVersion is folded into every idempotency key. Bump it when the
// payload layout changes so old ledger entries do not suppress new sends.
const SchemaVersion = 1

const (
	defaultCustomer  = "Customer"
	defaultOrderType = "order"
	clickAction      = "FLUTTER_NOTIFICATION_CLICK"
	typeNewOrder     = "new_order"
	typeTest         = "test"
)

// Builder formats payloads. The clock only feeds the advisory IssuedAt field.
type Builder struct {
	now func() time.Time
}

func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// IdempotencyKey derives the batch key for an event.
func IdempotencyKey(eventID string) string {
	sum := sha256.Sum256([]byte(eventID + ":v" + strconv.Itoa(SchemaVersion)))
	return hex.EncodeToString(sum[:])
}

// Build renders the new-order payload from the event's new state.
func (b *Builder) Build(ev domain.Event) domain.Payload {
	o := ev.After
	if o == nil {
		o = &domain.Order{}
	}

	number := orderNumber(ev.ID, o)
	orderType := firstNonEmpty(o.OrderType, defaultOrderType)
	customer := firstNonEmpty(o.CustomerName, defaultCustomer)

	body := fmt.Sprintf("New %s order from %s", orderType, customer)
	if n := len(o.Items); n > 0 {
		suffix := ""
		if n > 1 {
			suffix = "s"
		}
		body = fmt.Sprintf("%s - %d item%s (%s)", customer, n, suffix, orderType)
	}

	keys := o.Keys()
	if keys == nil {
		keys = []string{}
	}
	// []string always marshals.
	branchIDs, _ := json.Marshal(keys)

	return domain.Payload{
		Title: "New Order #" + number,
		Body:  body,
		Data: map[string]string{
			"orderId":      ev.ID,
			"orderNumber":  number,
			"orderType":    orderType,
			"customerName": customer,
			"branchIds":    string(branchIDs),
			"click_action": clickAction,
			"type":         typeNewOrder,
		},
		Version:        SchemaVersion,
		IdempotencyKey: IdempotencyKey(ev.ID),
		IssuedAt:       b.now().UTC(),
	}
}

// Test renders the fixed payload used by the manual verification endpoint.
func (b *Builder) Test() domain.Payload {
	return domain.Payload{
		Title: "Test Notification",
		Body:  "This is a data-only test notification",
		Data: map[string]string{
			"type":    typeTest,
			"message": "Test notification successful",
		},
		Version:  SchemaVersion,
		IssuedAt: b.now().UTC(),
	}
}

func orderNumber(eventID string, o *domain.Order) string {
	// A zero order number means "not assigned yet".
	for _, n := range []domain.FlexString{o.DailyOrderNumber, o.OrderNumber} {
		if n != "" && n != "0" {
			return string(n)
		}
	}
	short := []rune(eventID)
	if len(short) > 8 {
		short = short[:8]
	}
	return strings.ToUpper(string(short))
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
