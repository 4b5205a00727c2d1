package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct{ pool *pgxpool.Pool }

func NewNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Save(ctx context.Context, subscriptionID, userID, kind string, thresholdDays int) error {
	const q = `
INSERT INTO notification_log (subscription_id, user_id, kind, threshold_days, sent_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (subscription_id, kind, threshold_days) DO NOTHING;`

	_, err := r.pool.Exec(ctx, q, subscriptionID, userID, kind, thresholdDays)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) Exists(ctx context.Context, subscriptionID, kind string, thresholdDays int) (bool, error) {
	const q = `SELECT EXISTS(
SELECT 1 FROM notification_log WHERE subscription_id=$1 AND kind=$2 AND threshold_days=$3);`

	var exists bool
	if err := r.pool.QueryRow(ctx, q, subscriptionID, kind, thresholdDays).Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}
