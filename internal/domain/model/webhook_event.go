package model

import "time"

type WebhookEventStatus string

const (
	WebhookEventPending   WebhookEventStatus = "pending"   // verified, handler not finished
	WebhookEventProcessed WebhookEventStatus = "processed" // handler ran, backend command issued
	WebhookEventSkipped   WebhookEventStatus = "skipped"   // dropped (unknown type / missing correlation)
	WebhookEventFailed    WebhookEventStatus = "failed"    // handler errored; sweeper may retry
)

// WebhookEvent is the local journal row for one verified provider delivery.
// The journal gives redelivery detection and a worklist for the pending
// sweeper; the backend command itself stays the source of idempotency.
type WebhookEvent struct {
	ID         string // journal row UUID
	EventID    string // provider event id (evt_...), unique
	Type       string
	SessionID  string // cs_... when the event carries one
	UserID     string
	Status     WebhookEventStatus
	Detail     string // short outcome note for operators
	ReceivedAt time.Time
	UpdatedAt  time.Time
}
