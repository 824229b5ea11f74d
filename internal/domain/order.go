package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StatusPending is the order status that triggers staff notification.
const StatusPending = "pending"

// Order is the state of an order record as delivered by the change feed.
// Field names follow the mobile app's document layout.
type Order struct {
	Status           string            `json:"status"`
	RoutingKeys      []string          `json:"routingKeys,omitempty"`
	BranchIDs        []string          `json:"branchIds,omitempty"`
	OrderType        string            `json:"Order_type,omitempty"`
	CustomerName     string            `json:"customerName,omitempty"`
	Items            []json.RawMessage `json:"items,omitempty"`
	DailyOrderNumber FlexString        `json:"dailyOrderNumber,omitempty"`
	OrderNumber      FlexString        `json:"orderNumber,omitempty"`
}

// Keys returns the union of routingKeys and branchIds in first-seen order,
// with blanks removed.
func (o *Order) Keys() []string {
	if o == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(o.RoutingKeys)+len(o.BranchIDs))
	var keys []string
	for _, list := range [][]string{o.RoutingKeys, o.BranchIDs} {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// FlexString accepts either a JSON string or a JSON number.
// Order numbers arrive as both depending on which client wrote the record.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
