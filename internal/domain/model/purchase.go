package model

import "time"

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// CoursePurchase is a snapshot of a one-time course purchase record owned by
// the backend.
type CoursePurchase struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	CourseID    string         `json:"course_id"`
	AmountPaid  int64          `json:"amount_paid"` // minor units
	Status      PurchaseStatus `json:"status"`
	PurchasedAt *time.Time     `json:"purchased_at,omitempty"`
}

func (p *CoursePurchase) IsTerminalSuccess() bool {
	return p != nil && p.Status == PurchaseStatusCompleted
}

// CheckoutKind tells which entitlement a checkout session was buying.
type CheckoutKind string

const (
	CheckoutKindSubscription CheckoutKind = "subscription"
	CheckoutKindCourse       CheckoutKind = "course"
)

// CheckoutResult is the backend's answer to the idempotent confirm command.
// Exactly one of Subscription/Purchase is set, matching Kind.
type CheckoutResult struct {
	SessionID    string          `json:"session_id"`
	Kind         CheckoutKind    `json:"kind"`
	Subscription *Subscription   `json:"subscription,omitempty"`
	Purchase     *CoursePurchase `json:"purchase,omitempty"`
}

// IsTerminalSuccess reports whether the confirmed record already reached its
// terminal success status (ACTIVE / COMPLETED).
func (r *CheckoutResult) IsTerminalSuccess() bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case CheckoutKindSubscription:
		return r.Subscription.IsTerminalSuccess()
	case CheckoutKindCourse:
		return r.Purchase.IsTerminalSuccess()
	}
	return false
}
