//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// -----------------------------
// MockBackend
// -----------------------------

// MockBackend records every call and lets each test override behavior via the
// XxxFunc fields. Unset funcs default to "not found" / success.
type MockBackend struct {
	mu    sync.Mutex
	calls []string

	ConfirmCheckoutFunc         func(ctx context.Context, sessionID, userID string) (*model.CheckoutResult, error)
	RecordInvoicePaidFunc       func(ctx context.Context, invoiceID, subscriptionID, userID string) error
	RecordInvoiceFailedFunc     func(ctx context.Context, invoiceID, subscriptionID, userID string) error
	SyncSubscriptionFunc        func(ctx context.Context, sub *model.Subscription) error
	CurrentSubscriptionFunc     func(ctx context.Context, userID string) (*model.Subscription, error)
	CoursePurchaseBySessionFunc func(ctx context.Context, userID, sessionID string) (*model.CoursePurchase, error)
	PendingNotificationsFunc    func(ctx context.Context, userID string) ([]*model.PaymentNotification, error)
	CreateNotificationFunc      func(ctx context.Context, n *model.PaymentNotification) error
}

func NewMockBackend() *MockBackend { return &MockBackend{} }

func (m *MockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the ordered list of backend calls made so far.
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockBackend) CountCalls(name string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockBackend) ConfirmCheckout(ctx context.Context, sessionID, userID string) (*model.CheckoutResult, error) {
	m.record("ConfirmCheckout")
	if m.ConfirmCheckoutFunc != nil {
		return m.ConfirmCheckoutFunc(ctx, sessionID, userID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBackend) RecordInvoicePaid(ctx context.Context, invoiceID, subscriptionID, userID string) error {
	m.record("RecordInvoicePaid")
	if m.RecordInvoicePaidFunc != nil {
		return m.RecordInvoicePaidFunc(ctx, invoiceID, subscriptionID, userID)
	}
	return nil
}

func (m *MockBackend) RecordInvoiceFailed(ctx context.Context, invoiceID, subscriptionID, userID string) error {
	m.record("RecordInvoiceFailed")
	if m.RecordInvoiceFailedFunc != nil {
		return m.RecordInvoiceFailedFunc(ctx, invoiceID, subscriptionID, userID)
	}
	return nil
}

func (m *MockBackend) SyncSubscription(ctx context.Context, sub *model.Subscription) error {
	m.record("SyncSubscription")
	if m.SyncSubscriptionFunc != nil {
		return m.SyncSubscriptionFunc(ctx, sub)
	}
	return nil
}

func (m *MockBackend) CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	m.record("CurrentSubscription")
	if m.CurrentSubscriptionFunc != nil {
		return m.CurrentSubscriptionFunc(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBackend) CoursePurchaseBySession(ctx context.Context, userID, sessionID string) (*model.CoursePurchase, error) {
	m.record("CoursePurchaseBySession")
	if m.CoursePurchaseBySessionFunc != nil {
		return m.CoursePurchaseBySessionFunc(ctx, userID, sessionID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBackend) PendingNotifications(ctx context.Context, userID string) ([]*model.PaymentNotification, error) {
	m.record("PendingNotifications")
	if m.PendingNotificationsFunc != nil {
		return m.PendingNotificationsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBackend) CreateNotification(ctx context.Context, n *model.PaymentNotification) error {
	m.record("CreateNotification")
	if m.CreateNotificationFunc != nil {
		return m.CreateNotificationFunc(ctx, n)
	}
	return nil
}

// -----------------------------
// MockJournal
// -----------------------------

type MockJournal struct {
	mu    sync.Mutex
	store map[string]*model.WebhookEvent

	SaveFunc func(ctx context.Context, ev *model.WebhookEvent) error
}

func NewMockJournal() *MockJournal {
	return &MockJournal{store: make(map[string]*model.WebhookEvent)}
}

func (m *MockJournal) Save(ctx context.Context, ev *model.WebhookEvent) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.store[ev.EventID] = &cp
	return nil
}

func (m *MockJournal) FindByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.store[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *MockJournal) UpdateStatus(ctx context.Context, eventID string, status model.WebhookEventStatus, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.store[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Status = status
	ev.Detail = detail
	ev.UpdatedAt = time.Now()
	return nil
}

func (m *MockJournal) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.WebhookEvent
	for _, ev := range m.store {
		if (ev.Status == model.WebhookEventPending || ev.Status == model.WebhookEventFailed) && ev.UpdatedAt.Before(cutoff) {
			cp := *ev
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// -----------------------------
// MockNotifLog
// -----------------------------

type MockNotifLog struct {
	mu   sync.Mutex
	sent map[string]bool
}

func NewMockNotifLog() *MockNotifLog {
	return &MockNotifLog{sent: make(map[string]bool)}
}

func notifKey(subscriptionID, kind string, days int) string {
	return fmt.Sprintf("%s|%s|%d", subscriptionID, kind, days)
}

func (m *MockNotifLog) Save(ctx context.Context, subscriptionID, userID, kind string, thresholdDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[notifKey(subscriptionID, kind, thresholdDays)] = true
	return nil
}

func (m *MockNotifLog) Exists(ctx context.Context, subscriptionID, kind string, thresholdDays int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[notifKey(subscriptionID, kind, thresholdDays)], nil
}

// -----------------------------
// MockNotifier
// -----------------------------

type MockNotifier struct {
	mu     sync.Mutex
	Pushed []*model.Toast
}

func (m *MockNotifier) Push(t *model.Toast) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushed = append(m.Pushed, t)
}

func (m *MockNotifier) Drain(userID string) []*model.Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine, rest []*model.Toast
	for _, t := range m.Pushed {
		if t.UserID == userID {
			mine = append(mine, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.Pushed = rest
	return mine
}

func (m *MockNotifier) Dismiss(userID, toastID string) {}

// -----------------------------
// MockLocker
// -----------------------------

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]string)}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrEventInFlight
	}
	token := fmt.Sprintf("tok-%d", len(m.held)+1)
	m.held[key] = token
	return token, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// -----------------------------
// Misc stubs
// -----------------------------

// stubCache is an always-miss cache unless primed.
type stubCache struct {
	mu    sync.Mutex
	store map[string]*model.CheckoutResult
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string]*model.CheckoutResult)}
}

func (c *stubCache) Get(ctx context.Context, sessionID string) (*model.CheckoutResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.store[sessionID]
	return res, ok
}

func (c *stubCache) Set(ctx context.Context, sessionID string, res *model.CheckoutResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[sessionID] = res
}

// mockNotifyUC counts PollOnce invocations.
type mockNotifyUC struct {
	mu    sync.Mutex
	polls int
}

func (m *mockNotifyUC) PollOnce(ctx context.Context, userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	return 0
}

func (m *mockNotifyUC) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

var _ usecase.NotificationUseCase = (*mockNotifyUC)(nil)
