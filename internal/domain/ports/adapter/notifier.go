package adapter

import "lms-checkout-gateway/internal/domain/model"

// Notifier is the injectable sink for transient toasts. Implementations must
// never block the caller; delivery is best effort.
type Notifier interface {
	// Push enqueues a toast. Full queues drop the oldest entry.
	Push(t *model.Toast)
	// Drain returns and removes all live toasts for a user.
	Drain(userID string) []*model.Toast
	// Dismiss removes one toast by id. Unknown ids are a no-op.
	Dismiss(userID, toastID string)
}
