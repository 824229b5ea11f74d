package domain_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/notifyhub/orderpush/internal/domain"
)

func TestOrder_Keys(t *testing.T) {
	t.Run("merges routingKeys and branchIds without duplicates", func(t *testing.T) {
		o := &domain.Order{
			RoutingKeys: []string{"b1", " b2 ", ""},
			BranchIDs:   []string{"b2", "b3"},
		}
		want := []string{"b1", "b2", "b3"}
		if got := o.Keys(); !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("nil order has no keys", func(t *testing.T) {
		var o *domain.Order
		if got := o.Keys(); got != nil {
			t.Fatalf("expected nil, got %v", got)
		}
	})
}

func TestOrder_UnmarshalOrderNumbers(t *testing.T) {
	raw := `{"status":"pending","branchIds":["b1"],"dailyOrderNumber":42,"orderNumber":"A-7","items":[{"sku":"x"},{"sku":"y"}]}`

	var o domain.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.DailyOrderNumber != "42" {
		t.Fatalf("expected dailyOrderNumber=42, got %q", o.DailyOrderNumber)
	}
	if o.OrderNumber != "A-7" {
		t.Fatalf("expected orderNumber=A-7, got %q", o.OrderNumber)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(o.Items))
	}
}

func TestChangeEvent_Validate(t *testing.T) {
	ev := domain.ChangeEvent{}
	if err := ev.Validate(); err != domain.ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	ev.ID = "o1"
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestPayload_Wire(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := domain.Payload{
		Title:    "New Order #42",
		Body:     "Ann - 2 items (order)",
		Data:     map[string]string{"orderId": "o1"},
		IssuedAt: issued,
	}

	wire := p.Wire()
	if wire["title"] != p.Title || wire["body"] != p.Body {
		t.Fatalf("title/body not flattened: %v", wire)
	}
	if wire["orderId"] != "o1" {
		t.Fatalf("expected data to be carried, got %v", wire)
	}
	if wire["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %q", wire["timestamp"])
	}
	if _, ok := p.Data["title"]; ok {
		t.Fatal("Wire must not mutate the payload data map")
	}
}

func TestResult_Tally(t *testing.T) {
	var r domain.Result
	r.Tally([]domain.DispatchOutcome{
		{Kind: domain.OutcomeDelivered},
		{Kind: domain.OutcomeDelivered},
		{Kind: domain.OutcomeTransientFailure},
		{Kind: domain.OutcomePermanentFailure},
	})
	if r.Delivered != 2 || r.Transient != 1 || r.Permanent != 1 {
		t.Fatalf("unexpected tally: %+v", r)
	}
}

func TestTokenHint(t *testing.T) {
	if got := domain.TokenHint("short"); got != "short" {
		t.Fatalf("expected short token unchanged, got %q", got)
	}
	if got := domain.TokenHint("abcdefghijklmnop"); got != "abcdefghij..." {
		t.Fatalf("unexpected hint %q", got)
	}
}
