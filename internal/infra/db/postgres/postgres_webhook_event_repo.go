package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) Save(ctx context.Context, ev *model.WebhookEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	const q = `
INSERT INTO webhook_events (
  id, event_id, type, session_id, user_id, status, detail, received_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (event_id) DO UPDATE SET
  session_id=$4, user_id=$5, status=$6, detail=$7, updated_at=$9;`

	_, err := r.pool.Exec(ctx, q, ev.ID, ev.EventID, ev.Type, ev.SessionID, ev.UserID, ev.Status, ev.Detail, ev.ReceivedAt, ev.UpdatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) FindByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	const q = `SELECT id, event_id, type, session_id, user_id, status, detail, received_at, updated_at
FROM webhook_events WHERE event_id=$1;`

	ev := &model.WebhookEvent{}
	err := r.pool.QueryRow(ctx, q, eventID).
		Scan(&ev.ID, &ev.EventID, &ev.Type, &ev.SessionID, &ev.UserID, &ev.Status, &ev.Detail, &ev.ReceivedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ev, nil
}

func (r *webhookEventRepo) UpdateStatus(ctx context.Context, eventID string, status model.WebhookEventStatus, detail string) error {
	const q = `UPDATE webhook_events SET status=$2, detail=$3, updated_at=NOW() WHERE event_id=$1;`
	_, err := r.pool.Exec(ctx, q, eventID, status, detail)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.WebhookEvent, error) {
	const q = `SELECT id, event_id, type, session_id, user_id, status, detail, received_at, updated_at
FROM webhook_events
WHERE status IN ('pending','failed') AND updated_at < $1
ORDER BY updated_at ASC
LIMIT $2;`

	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.WebhookEvent
	for rows.Next() {
		ev := &model.WebhookEvent{}
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.Type, &ev.SessionID, &ev.UserID, &ev.Status, &ev.Detail, &ev.ReceivedAt, &ev.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
