// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/adapter"
	"lms-checkout-gateway/internal/domain/ports/repository"
	"lms-checkout-gateway/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// HandleEvent processes one signature-verified provider event. The
	// returned status says what happened to the event (processed, skipped,
	// failed, or already seen); the error is reserved for journal-level
	// faults. Handler failures are contained: they mark the journal row
	// failed and still acknowledge the delivery.
	HandleEvent(ctx context.Context, eventID, eventType string, payload []byte) (model.WebhookEventStatus, error)
}

// EventLocker guards one event id against concurrent redeliveries.
type EventLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type webhookUC struct {
	backend  adapter.BackendAPI
	journal  repository.WebhookEventRepository
	notifLog repository.NotificationLogRepository
	locker   EventLocker

	renewalSoonDays int
	log             *zerolog.Logger
}

func NewWebhookUseCase(
	backend adapter.BackendAPI,
	journal repository.WebhookEventRepository,
	notifLog repository.NotificationLogRepository,
	locker EventLocker,
	renewalSoonDays int,
	logger *zerolog.Logger,
) *webhookUC {
	if renewalSoonDays <= 0 {
		renewalSoonDays = 7
	}
	compLog := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{
		backend:         backend,
		journal:         journal,
		notifLog:        notifLog,
		locker:          locker,
		renewalSoonDays: renewalSoonDays,
		log:             &compLog,
	}
}

// Payload shapes, decoded from the provider event's raw object. Kept local:
// only the fields the handlers correlate on.

type checkoutSessionPayload struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"` // "subscription" | "payment"
	PaymentStatus string            `json:"payment_status"`
	ClientRefID   string            `json:"client_reference_id"`
	Metadata      map[string]string `json:"metadata"`
}

type invoicePayload struct {
	ID           string            `json:"id"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
	Lines        struct {
		Data []struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"data"`
	} `json:"lines"`
}

type subscriptionPayload struct {
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			Price struct {
				ID       string            `json:"id"`
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (u *webhookUC) HandleEvent(ctx context.Context, eventID, eventType string, payload []byte) (model.WebhookEventStatus, error) {
	if eventID == "" {
		return model.WebhookEventSkipped, domain.ErrInvalidArgument
	}

	// Local redelivery check. The backend command is idempotent anyway; this
	// just skips duplicate work and duplicate notifications.
	if prev, err := u.journal.FindByEventID(ctx, eventID); err == nil {
		if prev.Status == model.WebhookEventProcessed || prev.Status == model.WebhookEventSkipped {
			metrics.IncWebhookEvent(eventType, "duplicate")
			return prev.Status, domain.ErrAlreadyProcessed
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return model.WebhookEventFailed, fmt.Errorf("journal lookup: %w", err)
	}

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, "wh:evt:"+eventID, time.Minute)
		if err != nil {
			if errors.Is(err, domain.ErrEventInFlight) {
				metrics.IncWebhookEvent(eventType, "in_flight")
				return model.WebhookEventPending, domain.ErrEventInFlight
			}
			// Lock infrastructure fault, not a concurrent delivery. Nothing
			// has been journaled yet, so bubble it up and let the platform
			// redeliver instead of acking the event into the void.
			return model.WebhookEventPending, fmt.Errorf("event lock: %w", err)
		}
		defer func() { _ = u.locker.Unlock(ctx, "wh:evt:"+eventID, token) }()
	}

	now := time.Now()
	row := &model.WebhookEvent{
		EventID:    eventID,
		Type:       eventType,
		Status:     model.WebhookEventPending,
		ReceivedAt: now,
		UpdatedAt:  now,
	}

	status, detail, err := u.dispatch(ctx, eventType, payload, row)
	if err != nil {
		// Contain the failure: log, journal, acknowledge. The sweeper retries
		// failed rows later; the platform must not re-drive the whole payload.
		u.log.Error().Err(err).Str("event_id", eventID).Str("type", eventType).Msg("webhook handler failed")
		status = model.WebhookEventFailed
		detail = err.Error()
	}

	row.Status = status
	row.Detail = detail
	if jerr := u.journal.Save(ctx, row); jerr != nil {
		return status, fmt.Errorf("journal save: %w", jerr)
	}
	metrics.IncWebhookEvent(eventType, string(status))
	return status, nil
}

// dispatch maps each event kind to exactly one handler.
func (u *webhookUC) dispatch(ctx context.Context, eventType string, payload []byte, row *model.WebhookEvent) (model.WebhookEventStatus, string, error) {
	switch eventType {
	case "checkout.session.completed":
		return u.handleCheckoutCompleted(ctx, payload, row)
	case "invoice.paid":
		return u.handleInvoicePaid(ctx, payload, row)
	case "invoice.payment_failed":
		return u.handleInvoiceFailed(ctx, payload, row)
	case "customer.subscription.updated":
		return u.handleSubscriptionUpdated(ctx, payload, row)
	case "customer.subscription.deleted":
		return u.handleSubscriptionDeleted(ctx, payload, row)
	default:
		// Forward-compatible: unknown kinds are acknowledged, not errors.
		u.log.Info().Str("type", eventType).Msg("webhook event ignored (unhandled type)")
		return model.WebhookEventSkipped, "unhandled event type", nil
	}
}

func (u *webhookUC) handleCheckoutCompleted(ctx context.Context, payload []byte, row *model.WebhookEvent) (model.WebhookEventStatus, string, error) {
	var s checkoutSessionPayload
	if err := json.Unmarshal(payload, &s); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("decode checkout.session: %w", err)
	}

	sessionID := model.SanitizeSessionID(s.ID)
	if !model.IsValidSessionID(sessionID) {
		return model.WebhookEventSkipped, "malformed session id", nil
	}
	row.SessionID = sessionID

	userID := s.Metadata["user_id"]
	if userID == "" {
		userID = s.ClientRefID
	}
	if userID == "" {
		// A missing user id must not crash the webhook; drop this event only.
		u.log.Warn().Str("session_id", sessionID).Msg("checkout.session.completed without user id")
		return model.WebhookEventSkipped, "missing user id", nil
	}
	row.UserID = userID

	res, err := u.backend.ConfirmCheckout(ctx, sessionID, userID)
	if err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("confirm checkout: %w", err)
	}

	title, body := "Payment received", "Your payment was received and is being processed."
	if res.IsTerminalSuccess() {
		switch res.Kind {
		case model.CheckoutKindCourse:
			title, body = "Course unlocked", "Your course purchase is complete. Happy learning!"
		default:
			title, body = "Subscription active", "Your subscription is now active."
		}
	}
	u.createNotification(ctx, userID, model.NotificationPaymentSuccess, title, body, "")
	return model.WebhookEventProcessed, "checkout confirmed", nil
}

func (u *webhookUC) handleInvoicePaid(ctx context.Context, payload []byte, row *model.WebhookEvent) (model.WebhookEventStatus, string, error) {
	var inv invoicePayload
	if err := json.Unmarshal(payload, &inv); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("decode invoice: %w", err)
	}

	userID := invoiceUserID(&inv)
	if userID == "" || inv.Subscription == "" {
		u.log.Warn().Str("invoice_id", inv.ID).Msg("invoice.paid without correlation metadata")
		return model.WebhookEventSkipped, "missing correlation metadata", nil
	}
	row.UserID = userID

	if err := u.backend.RecordInvoicePaid(ctx, inv.ID, inv.Subscription, userID); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("record invoice paid: %w", err)
	}
	u.createNotification(ctx, userID, model.NotificationPaymentSuccess,
		"Subscription renewed", "Your renewal payment went through.", "")
	return model.WebhookEventProcessed, "invoice recorded", nil
}

func (u *webhookUC) handleInvoiceFailed(ctx context.Context, payload []byte, row *model.WebhookEvent) (model.WebhookEventStatus, string, error) {
	var inv invoicePayload
	if err := json.Unmarshal(payload, &inv); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("decode invoice: %w", err)
	}

	userID := invoiceUserID(&inv)
	if userID == "" || inv.Subscription == "" {
		u.log.Warn().Str("invoice_id", inv.ID).Msg("invoice.payment_failed without correlation metadata")
		return model.WebhookEventSkipped, "missing correlation metadata", nil
	}
	row.UserID = userID

	if err := u.backend.RecordInvoiceFailed(ctx, inv.ID, inv.Subscription, userID); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("record invoice failed: %w", err)
	}
	u.createNotification(ctx, userID, model.NotificationPaymentFailed,
		"Payment failed", "We could not charge your payment method. Please update it to keep your subscription.", "/account/billing")
	return model.WebhookEventProcessed, "invoice failure recorded", nil
}

func (u *webhookUC) handleSubscriptionUpdated(ctx context.Context, payload []byte, row *model.WebhookEvent) (model.WebhookEventStatus, string, error) {
	sub, userID, status, detail, err := u.decodeSubscription(payload)
	if sub == nil {
		return status, detail, err
	}
	row.UserID = userID

	if err := u.backend.SyncSubscription(ctx, sub); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("sync subscription: %w", err)
	}

	// Renewal-soon notice, deduplicated per (subscription, days-left) window
	// so redeliveries of the same update do not re-notify.
	days := sub.DaysUntilExpiry(time.Now())
	if days >= 0 && days <= u.renewalSoonDays && !sub.AutoRenew {
		seen, lerr := u.notifLog.Exists(ctx, sub.ID, string(model.NotificationRenewalSoon), days)
		if lerr != nil {
			u.log.Warn().Err(lerr).Str("subscription_id", sub.ID).Msg("notification log lookup failed")
		} else if !seen {
			u.createNotification(ctx, userID, model.NotificationRenewalSoon,
				"Subscription expiring soon",
				fmt.Sprintf("Your subscription expires in %d day(s). Renew to keep access.", days),
				"/account/billing")
			if serr := u.notifLog.Save(ctx, sub.ID, userID, string(model.NotificationRenewalSoon), days); serr != nil {
				u.log.Warn().Err(serr).Str("subscription_id", sub.ID).Msg("notification log save failed")
			}
		}
	}
	return model.WebhookEventProcessed, "subscription synced", nil
}

func (u *webhookUC) handleSubscriptionDeleted(ctx context.Context, payload []byte, row *model.WebhookEvent) (model.WebhookEventStatus, string, error) {
	sub, userID, status, detail, err := u.decodeSubscription(payload)
	if sub == nil {
		return status, detail, err
	}
	row.UserID = userID

	sub.Status = model.SubscriptionStatusCancelled
	if err := u.backend.SyncSubscription(ctx, sub); err != nil {
		return model.WebhookEventFailed, "", fmt.Errorf("sync subscription: %w", err)
	}
	u.createNotification(ctx, userID, model.NotificationCancelled,
		"Subscription cancelled", "Your subscription has been cancelled.", "")
	return model.WebhookEventProcessed, "subscription cancelled", nil
}

// decodeSubscription parses a subscription payload and maps it into the
// domain snapshot. A nil subscription return means the caller should use the
// accompanying status/detail/error as its result.
func (u *webhookUC) decodeSubscription(payload []byte) (*model.Subscription, string, model.WebhookEventStatus, string, error) {
	var sp subscriptionPayload
	if err := json.Unmarshal(payload, &sp); err != nil {
		return nil, "", model.WebhookEventFailed, "", fmt.Errorf("decode subscription: %w", err)
	}

	userID := sp.Metadata["user_id"]
	if userID == "" || sp.ID == "" {
		u.log.Warn().Str("subscription_id", sp.ID).Msg("subscription event without correlation metadata")
		return nil, "", model.WebhookEventSkipped, "missing correlation metadata", nil
	}

	planID := sp.Metadata["plan_id"]
	for _, item := range sp.Items.Data {
		if planID != "" {
			break
		}
		if pid := item.Price.Metadata["plan_id"]; pid != "" {
			planID = pid
		} else if item.Price.ID != "" {
			planID = item.Price.ID
		}
	}

	sub := &model.Subscription{
		ID:        sp.ID,
		UserID:    userID,
		PlanID:    planID,
		Status:    mapProviderSubscriptionStatus(sp.Status),
		AutoRenew: !sp.CancelAtPeriodEnd,
	}
	if sp.CurrentPeriodEnd > 0 {
		end := time.Unix(sp.CurrentPeriodEnd, 0)
		sub.ExpiresAt = &end
	}
	return sub, userID, model.WebhookEventProcessed, "", nil
}

func mapProviderSubscriptionStatus(s string) model.SubscriptionStatus {
	switch s {
	case "active", "trialing":
		return model.SubscriptionStatusActive
	case "canceled", "unpaid":
		return model.SubscriptionStatusCancelled
	case "incomplete_expired":
		return model.SubscriptionStatusExpired
	default:
		return model.SubscriptionStatusPending
	}
}

func invoiceUserID(inv *invoicePayload) string {
	if id := inv.Metadata["user_id"]; id != "" {
		return id
	}
	for _, line := range inv.Lines.Data {
		if id := line.Metadata["user_id"]; id != "" {
			return id
		}
	}
	return ""
}

// createNotification is best effort: at most one creation call per event, and
// a failure never fails the event.
func (u *webhookUC) createNotification(ctx context.Context, userID string, cat model.NotificationCategory, title, body, link string) {
	err := u.backend.CreateNotification(ctx, &model.PaymentNotification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Category:  cat,
		Link:      link,
		CreatedAt: time.Now(),
	})
	if err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Str("category", string(cat)).Msg("notification create failed")
	}
}
