package redis

import (
	"context"
	"encoding/json"
	"time"

	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/usecase"
)

// Compile-time check
var _ usecase.ResultCache = (*ResultCache)(nil)

// ResultCache keeps terminal checkout results for a short TTL so duplicated
// reconcile runs for the same session answer locally.
type ResultCache struct {
	client *Client
	ttl    time.Duration
}

func NewResultCache(client *Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{client: client, ttl: ttl}
}

func key(sessionID string) string { return "reconcile:result:" + sessionID }

func (c *ResultCache) Get(ctx context.Context, sessionID string) (*model.CheckoutResult, bool) {
	raw, err := c.client.Get(ctx, key(sessionID))
	if err != nil {
		return nil, false
	}
	var res model.CheckoutResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		// Stale or corrupt entry; drop it.
		_ = c.client.Del(ctx, key(sessionID))
		return nil, false
	}
	return &res, true
}

func (c *ResultCache) Set(ctx context.Context, sessionID string, res *model.CheckoutResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(sessionID), raw, c.ttl)
}
