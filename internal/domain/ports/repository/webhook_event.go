package repository

import (
	"context"
	"time"

	"lms-checkout-gateway/internal/domain/model"
)

// WebhookEventRepository journals verified provider deliveries.
type WebhookEventRepository interface {
	// Save inserts or updates a journal row (upsert by provider event id).
	Save(ctx context.Context, ev *model.WebhookEvent) error
	// FindByEventID returns the row for a provider event id, or domain.ErrNotFound.
	FindByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error)
	// UpdateStatus sets the processing outcome of a journal row.
	UpdateStatus(ctx context.Context, eventID string, status model.WebhookEventStatus, detail string) error
	// ListPendingOlderThan returns pending/failed rows last touched before
	// cutoff, oldest first, capped at limit. Worklist for the sweeper.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.WebhookEvent, error)
}
