//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/usecase"
)

func TestNotificationUseCase_PollOnce(t *testing.T) {
	t.Run("fans pending notifications out as toasts", func(t *testing.T) {
		// --- Arrange ---
		backend := NewMockBackend()
		backend.PendingNotificationsFunc = func(ctx context.Context, userID string) ([]*model.PaymentNotification, error) {
			return []*model.PaymentNotification{
				{UserID: userID, Title: "Subscription active", Category: model.NotificationPaymentSuccess},
				{UserID: userID, Title: "Subscription renewed", Category: model.NotificationPaymentSuccess, Link: "/account/billing"},
			}, nil
		}
		notifier := &MockNotifier{}
		uc := usecase.NewNotificationUseCase(backend, notifier, 8*time.Second, newTestLogger())

		// --- Act ---
		n := uc.PollOnce(context.Background(), "user-1")

		// --- Assert ---
		if n != 2 {
			t.Fatalf("expected fan-out count 2, got %d", n)
		}
		toasts := notifier.Drain("user-1")
		if len(toasts) != 2 {
			t.Fatalf("expected 2 toasts, got %d", len(toasts))
		}
		for _, toast := range toasts {
			if toast.ID == "" {
				t.Error("toast must get its own id")
			}
			if !toast.ExpiresAt.After(toast.CreatedAt) {
				t.Error("toast must carry an expiry after creation")
			}
		}
		if toasts[1].Link != "/account/billing" {
			t.Errorf("link lost in fan-out: %q", toasts[1].Link)
		}
	})

	t.Run("poll failure is swallowed", func(t *testing.T) {
		// --- Arrange ---
		backend := NewMockBackend()
		backend.PendingNotificationsFunc = func(ctx context.Context, userID string) ([]*model.PaymentNotification, error) {
			return nil, domain.ErrBackendUnavailable
		}
		notifier := &MockNotifier{}
		uc := usecase.NewNotificationUseCase(backend, notifier, 8*time.Second, newTestLogger())

		// --- Act ---
		n := uc.PollOnce(context.Background(), "user-1")

		// --- Assert ---
		if n != 0 {
			t.Fatalf("expected zero fan-out on failure, got %d", n)
		}
		if got := notifier.Drain("user-1"); len(got) != 0 {
			t.Errorf("expected no toasts, got %d", len(got))
		}
	})

	t.Run("no pending notifications is a quiet no-op", func(t *testing.T) {
		// --- Arrange ---
		backend := NewMockBackend()
		notifier := &MockNotifier{}
		uc := usecase.NewNotificationUseCase(backend, notifier, 8*time.Second, newTestLogger())

		// --- Act ---
		n := uc.PollOnce(context.Background(), "user-1")

		// --- Assert ---
		if n != 0 {
			t.Fatalf("expected zero fan-out, got %d", n)
		}
	})
}
