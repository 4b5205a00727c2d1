package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/adapter"
	"lms-checkout-gateway/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// PollOnce fetches pending payment notifications for the user once and
	// fans each out as a transient toast. Returns the fan-out count. Failures
	// are logged and swallowed; notifications are a best-effort enhancement,
	// never a blocker for the success flow.
	PollOnce(ctx context.Context, userID string) int
}

type notificationUC struct {
	backend  adapter.BackendAPI
	notifier adapter.Notifier
	toastTTL time.Duration
	log      *zerolog.Logger
}

func NewNotificationUseCase(backend adapter.BackendAPI, notifier adapter.Notifier, toastTTL time.Duration, logger *zerolog.Logger) *notificationUC {
	if toastTTL <= 0 {
		toastTTL = 8 * time.Second
	}
	compLog := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{backend: backend, notifier: notifier, toastTTL: toastTTL, log: &compLog}
}

func (n *notificationUC) PollOnce(ctx context.Context, userID string) int {
	items, err := n.backend.PendingNotifications(ctx, userID)
	if err != nil {
		n.log.Warn().Err(err).Str("user_id", userID).Msg("notification poll failed")
		return 0
	}

	now := time.Now()
	for _, item := range items {
		n.notifier.Push(&model.Toast{
			ID:        ulid.Make().String(),
			UserID:    userID,
			Title:     item.Title,
			Body:      item.Body,
			Category:  item.Category,
			Link:      item.Link,
			CreatedAt: now,
			ExpiresAt: now.Add(n.toastTTL),
		})
	}
	if len(items) > 0 {
		metrics.AddNotificationsFanout(len(items))
		n.log.Info().Int("count", len(items)).Str("user_id", userID).Msg("notifications fanned out")
	}
	return len(items)
}
