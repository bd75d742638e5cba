package httprail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	id "refledger/pkg/domain"
	"refledger/pkg/platform/circuit"
	"refledger/pkg/platform/sentinel"
)

// SubscriptionClient talks to the credential registry, guarded by the same
// breaker policy as the payment rail.
type SubscriptionClient struct {
	base    string
	client  *http.Client
	breaker *circuit.Breaker
}

func NewSubscriptionClient(base string) *SubscriptionClient {
	return &SubscriptionClient{
		base:   base,
		client: &http.Client{Timeout: defaultTimeout},
		breaker: circuit.New("subscription-authority",
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(breakerCooldown),
		),
	}
}

type mintRequest struct {
	Owner string `json:"owner"`
}

type mintResponse struct {
	CredentialID uint64 `json:"credential_id"`
}

type expiryResponse struct {
	SecondsRemaining int64 `json:"seconds_remaining"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

func (c *SubscriptionClient) Mint(ctx context.Context, owner id.ParticipantID) (id.CredentialID, error) {
	payload, err := json.Marshal(mintRequest{Owner: owner.String()})
	if err != nil {
		return 0, fmt.Errorf("marshal mint request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/credentials", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out mintResponse
	if err := c.do(req, &out); err != nil {
		return 0, err
	}
	return id.CredentialID(out.CredentialID), nil
}

func (c *SubscriptionClient) Renew(ctx context.Context, credential id.CredentialID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/credentials/%d/renew", c.base, credential), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, nil)
}

func (c *SubscriptionClient) TimeUntilExpired(ctx context.Context, credential id.CredentialID) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/credentials/%d/expiry", c.base, credential), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	var out expiryResponse
	if err := c.do(req, &out); err != nil {
		return 0, err
	}
	return time.Duration(out.SecondsRemaining) * time.Second, nil
}

func (c *SubscriptionClient) OwnerOf(ctx context.Context, credential id.CredentialID) (id.ParticipantID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/credentials/%d/owner", c.base, credential), nil)
	if err != nil {
		return id.NilParticipant, fmt.Errorf("build request: %w", err)
	}
	var out ownerResponse
	if err := c.do(req, &out); err != nil {
		return id.NilParticipant, err
	}
	return id.ParseParticipantID(out.Owner)
}

func (c *SubscriptionClient) do(req *http.Request, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("subscription authority: %w", sentinel.ErrUnavailable)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("subscription authority: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
		return railError("subscription authority", resp)
	}
	c.breaker.RecordSuccess()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return railError("subscription authority", resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode subscription authority response: %w", err)
	}
	return nil
}
