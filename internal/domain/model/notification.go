package model

import "time"

type NotificationCategory string

const (
	NotificationPaymentSuccess NotificationCategory = "payment_success"
	NotificationPaymentFailed  NotificationCategory = "payment_failed"
	NotificationRenewalSoon    NotificationCategory = "renewal_soon"
	NotificationCancelled      NotificationCategory = "subscription_cancelled"
)

// PaymentNotification is a transient payment-related message created by the
// backend and delivered to the user via polling. Consumed once; not persisted
// on this side beyond the toast's display lifetime.
type PaymentNotification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Category  NotificationCategory `json:"category"`
	Link      string               `json:"link,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Toast is one transient on-screen rendition of a notification. Independently
// dismissible; auto-expires at ExpiresAt unless dismissed earlier.
type Toast struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Category  NotificationCategory `json:"category"`
	Link      string               `json:"link,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}
