// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/adapter"
	"lms-checkout-gateway/internal/infra/metrics"
)

// ReconcileState is the terminal (or in-flight) state of one reconciliation run.
type ReconcileState string

const (
	StateValidating      ReconcileState = "validating"
	StateReconciling     ReconcileState = "reconciling"
	StateFallbackPolling ReconcileState = "fallback_polling"
	StateSuccess         ReconcileState = "success"
	StateTimeout         ReconcileState = "timeout"
	StateError           ReconcileState = "error"
)

// ReconcileOutcome is what one run of the state machine produced.
type ReconcileOutcome struct {
	State     ReconcileState        `json:"state"`
	Message   string                `json:"message,omitempty"`
	SessionID string                `json:"session_id,omitempty"`
	Attempts  int                   `json:"poll_attempts"`
	Retryable bool                  `json:"retryable"`
	Result    *model.CheckoutResult `json:"result,omitempty"`
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// Reconcile runs the post-checkout state machine once:
	// validate -> confirm -> (fallback polling) -> success | timeout | error.
	// The returned outcome is always non-nil; the error is non-nil only when
	// the context was cancelled mid-run.
	Reconcile(ctx context.Context, userID, rawSessionID string) (*ReconcileOutcome, error)
}

// ResultCache keeps terminal-success checkout results for a short window so a
// duplicated run (effect re-fire, remount) answers without another backend
// round trip. Best effort; a miss just repeats the idempotent confirm.
type ResultCache interface {
	Get(ctx context.Context, sessionID string) (*model.CheckoutResult, bool)
	Set(ctx context.Context, sessionID string, res *model.CheckoutResult)
}

// ReconcileConfig bounds the fallback polling loop and the post-success
// notification delay.
type ReconcileConfig struct {
	PollInterval time.Duration // between state reads, ~2s
	PollAttempts int           // attempt ceiling, single digit
	NotifyDelay  time.Duration // wait before the one-shot notification poll
}

type reconcileUC struct {
	backend adapter.BackendAPI
	cache   ResultCache
	notify  NotificationUseCase
	cfg     ReconcileConfig
	log     *zerolog.Logger
}

func NewReconcileUseCase(backend adapter.BackendAPI, cache ResultCache, notify NotificationUseCase, cfg ReconcileConfig, logger *zerolog.Logger) *reconcileUC {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 5
	}
	if cfg.NotifyDelay <= 0 {
		cfg.NotifyDelay = time.Second
	}
	compLog := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{backend: backend, cache: cache, notify: notify, cfg: cfg, log: &compLog}
}

func (u *reconcileUC) Reconcile(ctx context.Context, userID, rawSessionID string) (*ReconcileOutcome, error) {
	// VALIDATING: no network call happens before this passes.
	sessionID := model.SanitizeSessionID(rawSessionID)
	if !model.IsValidSessionID(sessionID) {
		metrics.IncReconcile(string(StateError))
		return &ReconcileOutcome{
			State:   StateError,
			Message: "invalid session",
		}, nil
	}

	if u.cache != nil {
		if res, ok := u.cache.Get(ctx, sessionID); ok && res.IsTerminalSuccess() {
			return u.success(ctx, userID, sessionID, res, 0), nil
		}
	}

	// RECONCILING: one idempotent confirm command.
	res, err := u.backend.ConfirmCheckout(ctx, sessionID, userID)
	if err != nil {
		if ctx.Err() != nil {
			return &ReconcileOutcome{State: StateReconciling, SessionID: sessionID}, ctx.Err()
		}
		// Secondary fallback: a single direct state read. Not auto-retried
		// beyond that; the user gets a retry affordance instead.
		if snap := u.readAnyState(ctx, userID, sessionID); snap.IsTerminalSuccess() {
			return u.success(ctx, userID, sessionID, snap, 0), nil
		}
		u.log.Warn().Err(err).Str("session_id", sessionID).Msg("checkout confirm failed")
		metrics.IncReconcile(string(StateError))
		return &ReconcileOutcome{
			State:     StateError,
			Message:   "could not confirm your payment, please retry",
			SessionID: sessionID,
			Retryable: true,
		}, nil
	}

	if res.IsTerminalSuccess() {
		return u.success(ctx, userID, sessionID, res, 0), nil
	}

	// FALLBACK_POLLING: the backend has the record but has not caught up with
	// the payment platform yet. Bounded attempts, fixed interval.
	return u.poll(ctx, userID, sessionID, res.Kind)
}

func (u *reconcileUC) poll(ctx context.Context, userID, sessionID string, kind model.CheckoutKind) (*ReconcileOutcome, error) {
	timer := time.NewTimer(u.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= u.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return &ReconcileOutcome{State: StateFallbackPolling, SessionID: sessionID, Attempts: attempt - 1}, ctx.Err()
		case <-timer.C:
		}

		snap := u.readState(ctx, userID, sessionID, kind)
		metrics.ObservePollAttempt(attempt)
		if snap.IsTerminalSuccess() {
			out := u.success(ctx, userID, sessionID, snap, attempt)
			return out, nil
		}
		timer.Reset(u.cfg.PollInterval)
	}

	// Exhausted. The payment may simply still be in flight on the backend, so
	// this is "processing, check back shortly", not an error.
	metrics.IncReconcile(string(StateTimeout))
	return &ReconcileOutcome{
		State:     StateTimeout,
		Message:   "payment is still processing, check back shortly",
		SessionID: sessionID,
		Attempts:  u.cfg.PollAttempts,
	}, nil
}

// readState reads the current backend state for a session of a known kind.
// Returns an empty, non-terminal result on read errors.
func (u *reconcileUC) readState(ctx context.Context, userID, sessionID string, kind model.CheckoutKind) *model.CheckoutResult {
	switch kind {
	case model.CheckoutKindCourse:
		p, err := u.backend.CoursePurchaseBySession(ctx, userID, sessionID)
		if err != nil {
			u.logReadErr(err, sessionID)
			return &model.CheckoutResult{SessionID: sessionID, Kind: kind}
		}
		return &model.CheckoutResult{SessionID: sessionID, Kind: kind, Purchase: p}
	default:
		s, err := u.backend.CurrentSubscription(ctx, userID)
		if err != nil {
			u.logReadErr(err, sessionID)
			return &model.CheckoutResult{SessionID: sessionID, Kind: model.CheckoutKindSubscription}
		}
		return &model.CheckoutResult{SessionID: sessionID, Kind: model.CheckoutKindSubscription, Subscription: s}
	}
}

// readAnyState is the secondary fallback when the confirm call itself failed
// and the checkout kind is unknown: try the subscription read, then the
// purchase read.
func (u *reconcileUC) readAnyState(ctx context.Context, userID, sessionID string) *model.CheckoutResult {
	if snap := u.readState(ctx, userID, sessionID, model.CheckoutKindSubscription); snap.IsTerminalSuccess() {
		return snap
	}
	return u.readState(ctx, userID, sessionID, model.CheckoutKindCourse)
}

func (u *reconcileUC) success(ctx context.Context, userID, sessionID string, res *model.CheckoutResult, attempts int) *ReconcileOutcome {
	if u.cache != nil {
		u.cache.Set(ctx, sessionID, res)
	}
	metrics.IncReconcile(string(StateSuccess))

	// Give the backend's own notification side effects a moment to land
	// before the one-shot poll.
	if u.notify != nil {
		select {
		case <-ctx.Done():
		case <-time.After(u.cfg.NotifyDelay):
			u.notify.PollOnce(ctx, userID)
		}
	}

	return &ReconcileOutcome{
		State:     StateSuccess,
		SessionID: sessionID,
		Attempts:  attempts,
		Result:    res,
	}
}

func (u *reconcileUC) logReadErr(err error, sessionID string) {
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	u.log.Debug().Err(err).Str("session_id", sessionID).Msg("state read failed during reconcile")
}
