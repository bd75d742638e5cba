// Package httprail provides JSON-over-HTTP adapters for the external
// payment and subscription rails.
package httprail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	id "refledger/pkg/domain"
	"refledger/pkg/platform/circuit"
	"refledger/pkg/platform/sentinel"
)

const (
	defaultTimeout  = 10 * time.Second
	breakerCooldown = 30 * time.Second
)

// PaymentClient talks to the value-transfer rail. A circuit breaker guards
// the endpoint: transport failures and 5xx responses trip it, and while it
// is open calls fail fast with sentinel.ErrUnavailable.
type PaymentClient struct {
	base    string
	client  *http.Client
	breaker *circuit.Breaker
}

func NewPaymentClient(base string) *PaymentClient {
	return &PaymentClient{
		base:   base,
		client: &http.Client{Timeout: defaultTimeout},
		breaker: circuit.New("payment-rail",
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(breakerCooldown),
		),
	}
}

type transferFromRequest struct {
	Payer       string `json:"payer"`
	Beneficiary string `json:"beneficiary,omitempty"`
	Amount      uint64 `json:"amount"`
}

type transferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type amountResponse struct {
	Amount uint64 `json:"amount"`
}

func (c *PaymentClient) TransferFrom(ctx context.Context, payer, beneficiary id.ParticipantID, amount uint64) error {
	body := transferFromRequest{Payer: payer.String(), Amount: amount}
	if !beneficiary.IsNil() {
		body.Beneficiary = beneficiary.String()
	}
	return c.post(ctx, "/transfer-from", body, nil)
}

func (c *PaymentClient) Transfer(ctx context.Context, to id.ParticipantID, amount uint64) error {
	return c.post(ctx, "/transfer", transferRequest{To: to.String(), Amount: amount}, nil)
}

func (c *PaymentClient) BalanceOf(ctx context.Context, participant id.ParticipantID) (uint64, error) {
	var out amountResponse
	if err := c.get(ctx, "/balance/"+participant.String(), &out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

func (c *PaymentClient) Allowance(ctx context.Context, owner id.ParticipantID) (uint64, error) {
	var out amountResponse
	if err := c.get(ctx, "/allowance/"+owner.String(), &out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

func (c *PaymentClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *PaymentClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *PaymentClient) do(req *http.Request, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("payment rail: %w", sentinel.ErrUnavailable)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("payment rail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
		return railError("payment rail", resp)
	}
	// 4xx responses are the rail rejecting this call, not an outage.
	c.breaker.RecordSuccess()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return railError("payment rail", resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode payment rail response: %w", err)
	}
	return nil
}

// railError surfaces the rail's reason field when present.
func railError(rail string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var parsed struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Reason != "" {
			return fmt.Errorf("%s: %s (status %d)", rail, parsed.Reason, resp.StatusCode)
		}
		if parsed.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", rail, parsed.Error, resp.StatusCode)
		}
	}
	return fmt.Errorf("%s: status %d", rail, resp.StatusCode)
}
