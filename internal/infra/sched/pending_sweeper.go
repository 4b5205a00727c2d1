package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/adapter"
	"lms-checkout-gateway/internal/domain/ports/repository"
)

// PendingSweeper periodically scans the webhook journal for stale
// pending/failed checkout events and re-issues the idempotent confirm
// command. This covers crashed handlers and abandoned redirects where neither
// the webhook retry nor the user's return visit finished the job.
type PendingSweeper struct {
	backend    adapter.BackendAPI
	journal    repository.WebhookEventRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a row must be to retry
	log        *zerolog.Logger
}

func NewPendingSweeper(backend adapter.BackendAPI, journal repository.WebhookEventRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PendingSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	compLog := logger.With().Str("component", "PendingSweeper").Logger()
	return &PendingSweeper{
		backend:    backend,
		journal:    journal,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &compLog,
	}
}

func (w *PendingSweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting pending sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pending sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PendingSweeper) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.journal.ListPendingOlderThan(ctx, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale events failed")
		return
	}

	for _, ev := range stale {
		// Only checkout confirmations are retryable from the journal; other
		// kinds lack the full payload and wait for platform redelivery.
		if ev.Type != "checkout.session.completed" || ev.SessionID == "" || ev.UserID == "" {
			continue
		}
		res, err := w.backend.ConfirmCheckout(ctx, ev.SessionID, ev.UserID)
		if err != nil {
			w.log.Warn().Err(err).Str("event_id", ev.EventID).Str("session_id", ev.SessionID).Msg("sweep confirm failed")
			_ = w.journal.UpdateStatus(ctx, ev.EventID, model.WebhookEventFailed, "sweep confirm failed: "+err.Error())
			continue
		}
		if !res.IsTerminalSuccess() {
			// Backend still catching up with the payment platform; keep the
			// row pending so the next pass retries.
			_ = w.journal.UpdateStatus(ctx, ev.EventID, model.WebhookEventPending, "sweep confirm still pending")
			continue
		}
		if err := w.journal.UpdateStatus(ctx, ev.EventID, model.WebhookEventProcessed, "confirmed by sweeper"); err != nil {
			w.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("journal update failed")
			continue
		}
		w.log.Info().Str("event_id", ev.EventID).Str("session_id", ev.SessionID).Msg("stale checkout reconciled")
	}
}
