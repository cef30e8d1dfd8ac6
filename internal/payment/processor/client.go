package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client talks to the payment processor's REST API.
type Client struct {
	log     *slog.Logger
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(log *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (Session, error) {
	var sess Session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", params, &sess); err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+id, nil, &sess); err != nil {
		return Session{}, fmt.Errorf("fetch checkout session %s: %w", id, err)
	}
	return sess, nil
}

func (c *Client) CreateRefund(ctx context.Context, transactionID string, amountCents int64) (string, error) {
	body := map[string]any{"transaction_id": transactionID, "amount": amountCents}
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", body, &refund); err != nil {
		return "", fmt.Errorf("refund %s: %w", transactionID, err)
	}
	return refund.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("processor returned %d: %s", resp.StatusCode, snippet)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
