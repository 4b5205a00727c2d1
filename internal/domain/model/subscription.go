package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a snapshot of a user's plan entitlement. The backend owns
// the record; this copy is non-authoritative and must be re-fetched after any
// payment-completion redirect.
type Subscription struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	PlanID    string             `json:"plan_id"`
	Status    SubscriptionStatus `json:"status"`
	StartAt   *time.Time         `json:"start_at,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	AutoRenew bool               `json:"auto_renew"`
	PricePaid int64              `json:"price_paid"` // minor units
}

// IsTerminalSuccess reports whether the subscription has reached the state a
// completed checkout is supposed to land in.
func (s *Subscription) IsTerminalSuccess() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// DaysUntilExpiry returns whole days left before expiry. Negative when no
// expiry is set or the subscription has already lapsed, so "days remaining"
// guards skip both.
func (s *Subscription) DaysUntilExpiry(now time.Time) int {
	if s == nil || s.ExpiresAt == nil {
		return -1
	}
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return -1
	}
	return int(d / (24 * time.Hour))
}
