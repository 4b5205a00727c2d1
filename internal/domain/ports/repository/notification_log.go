package repository

import "context"

// NotificationLogRepository records which dedupe-keyed notifications have
// already been sent, so redelivered webhook events do not re-notify the same
// renewal window.
type NotificationLogRepository interface {
	// Save records that a notification was sent for the given key.
	Save(ctx context.Context, subscriptionID, userID, kind string, thresholdDays int) error
	// Exists checks whether that notification has already been sent.
	Exists(ctx context.Context, subscriptionID, kind string, thresholdDays int) (bool, error)
}
