// File: internal/infra/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.BackendAPI = (*Client)(nil)

// Client talks to the LMS backend REST API. Response bodies are parsed
// through a tagged envelope so malformed payloads fail fast at this boundary
// instead of leaking zero-valued state upward.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope is the backend's uniform response shape: exactly one of data or
// error is set.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) ConfirmCheckout(ctx context.Context, sessionID, userID string) (*model.CheckoutResult, error) {
	body := map[string]string{"session_id": sessionID, "user_id": userID}
	var out model.CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/checkout/confirm", body, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	return &out, nil
}

func (c *Client) RecordInvoicePaid(ctx context.Context, invoiceID, subscriptionID, userID string) error {
	body := map[string]string{"invoice_id": invoiceID, "subscription_id": subscriptionID, "user_id": userID}
	return c.do(ctx, http.MethodPost, "/api/v1/invoices/paid", body, nil)
}

func (c *Client) RecordInvoiceFailed(ctx context.Context, invoiceID, subscriptionID, userID string) error {
	body := map[string]string{"invoice_id": invoiceID, "subscription_id": subscriptionID, "user_id": userID}
	return c.do(ctx, http.MethodPost, "/api/v1/invoices/failed", body, nil)
}

func (c *Client) SyncSubscription(ctx context.Context, sub *model.Subscription) error {
	return c.do(ctx, http.MethodPut, "/api/v1/subscriptions/sync", sub, nil)
}

func (c *Client) CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	var out model.Subscription
	path := "/api/v1/users/" + url.PathEscape(userID) + "/subscription"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CoursePurchaseBySession(ctx context.Context, userID, sessionID string) (*model.CoursePurchase, error) {
	var out model.CoursePurchase
	path := "/api/v1/users/" + url.PathEscape(userID) + "/purchases?session_id=" + url.QueryEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PendingNotifications(ctx context.Context, userID string) ([]*model.PaymentNotification, error) {
	var out []*model.PaymentNotification
	path := "/api/v1/users/" + url.PathEscape(userID) + "/notifications/pending"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNotification(ctx context.Context, n *model.PaymentNotification) error {
	return c.do(ctx, http.MethodPost, "/api/v1/notifications", n, nil)
}

// do performs one request and decodes the envelope into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if env.Error != nil {
		return fmt.Errorf("backend error %s: %s", env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domain.ErrMalformedResponse
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
