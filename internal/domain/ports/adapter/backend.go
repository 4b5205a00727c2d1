package adapter

import (
	"context"

	"lms-checkout-gateway/internal/domain/model"
)

// BackendAPI is the capability contract against the LMS backend REST API. The
// backend is the sole writer of subscription and purchase records; everything
// here is either an idempotent command keyed by a provider identifier or a
// plain read.
type BackendAPI interface {
	// ConfirmCheckout asks the backend to confirm/activate the purchase behind
	// a checkout session. Idempotent by session id: a redelivered confirm does
	// not double-activate.
	ConfirmCheckout(ctx context.Context, sessionID, userID string) (*model.CheckoutResult, error)

	// RecordInvoicePaid forwards a renewal payment, keyed by invoice id.
	RecordInvoicePaid(ctx context.Context, invoiceID, subscriptionID, userID string) error

	// RecordInvoiceFailed forwards a failed renewal payment, keyed by invoice id.
	RecordInvoiceFailed(ctx context.Context, invoiceID, subscriptionID, userID string) error

	// SyncSubscription pushes the provider's current view of a subscription
	// (status, period end, auto-renew) to the backend.
	SyncSubscription(ctx context.Context, sub *model.Subscription) error

	// CurrentSubscription reads the user's current subscription.
	// Returns domain.ErrNotFound when the user has none.
	CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error)

	// CoursePurchaseBySession reads the purchase state for one checkout session.
	CoursePurchaseBySession(ctx context.Context, userID, sessionID string) (*model.CoursePurchase, error)

	// PendingNotifications lists undelivered payment notifications for a user.
	PendingNotifications(ctx context.Context, userID string) ([]*model.PaymentNotification, error)

	// CreateNotification enqueues a user-facing notification on the backend.
	CreateNotification(ctx context.Context, n *model.PaymentNotification) error
}
