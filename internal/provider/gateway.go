package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/notifyhub/orderpush/internal/domain"
)

const batchSendPath = "/v1/messages:batchSend"

// batchRequest is the JSON body posted to the push gateway. There is no
// "notification" block: the message is data-only.
type batchRequest struct {
	Data    map[string]string `json:"data"`
	Tokens  []string          `json:"tokens"`
	Android androidConfig     `json:"android"`
	APNS    apnsConfig        `json:"apns"`
}

type androidConfig struct {
	Priority string `json:"priority"`
}

type apnsConfig struct {
	Headers map[string]string `json:"headers"`
	Payload apnsPayload       `json:"payload"`
}

type apnsPayload struct {
	APS map[string]int `json:"aps"`
}

// batchResponse maps the gateway's 200 OK body. Responses are in token order.
type batchResponse struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
	Responses    []struct {
		Success   bool           `json:"success"`
		MessageID string         `json:"messageId"`
		Error     *ProviderError `json:"error,omitempty"`
	} `json:"responses"`
}

// GatewayProvider delivers payloads by POSTing to an HTTP push gateway that
// fronts FCM/APNs. The base URL is injected from config so tests can point
// to a local mock.
type GatewayProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayProvider(baseURL, apiKey string, timeout time.Duration) *GatewayProvider {
	return &GatewayProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendBatch posts one multicast request and maps the per-token responses
// back onto tokens by index.
func (p *GatewayProvider) SendBatch(ctx context.Context, pl domain.Payload, tokens []string, opts SendOptions) ([]SendResult, error) {
	body, err := json.Marshal(newBatchRequest(pl, tokens, opts))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+batchSendPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if pl.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", pl.IdempotencyKey)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected provider status: %d", resp.StatusCode)
	}

	var br batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]SendResult, 0, len(br.Responses))
	for i, r := range br.Responses {
		if i >= len(tokens) {
			break
		}
		res := SendResult{Token: tokens[i], MessageID: r.MessageID, Err: r.Error}
		if !r.Success && res.Err == nil {
			res.Err = &ProviderError{Code: "unknown", Message: "provider reported failure without detail"}
		}
		results = append(results, res)
	}
	return results, nil
}

func newBatchRequest(pl domain.Payload, tokens []string, opts SendOptions) batchRequest {
	req := batchRequest{
		Data:    pl.Wire(),
		Tokens:  tokens,
		Android: androidConfig{Priority: "normal"},
		APNS: apnsConfig{
			Headers: map[string]string{"apns-priority": "5"},
			Payload: apnsPayload{APS: map[string]int{}},
		},
	}
	if opts.Priority == PriorityHigh {
		req.Android.Priority = "high"
		req.APNS.Headers["apns-priority"] = "10"
	}
	if opts.WakeApp {
		req.APNS.Payload.APS["content-available"] = 1
	}
	return req
}

// compile-time check that GatewayProvider implements PushProvider
var _ PushProvider = (*GatewayProvider)(nil)
