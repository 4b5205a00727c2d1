// File: internal/infra/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain/ports/adapter"
	"lms-checkout-gateway/internal/infra/logging"
	"lms-checkout-gateway/internal/infra/webhook"
	"lms-checkout-gateway/internal/usecase"
)

// Server exposes the reconcile/notification API plus the webhook receiver.
type Server struct {
	reconcileUC    usecase.ReconcileUseCase
	backend        adapter.BackendAPI
	notifier       adapter.Notifier
	webhooks       *webhook.Server
	jwtSecret      string
	requestTimeout time.Duration
	log            *zerolog.Logger
}

func NewServer(
	reconcileUC usecase.ReconcileUseCase,
	backend adapter.BackendAPI,
	notifier adapter.Notifier,
	webhooks *webhook.Server,
	jwtSecret string,
	requestTimeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "APIServer").Logger()
	return &Server{
		reconcileUC:    reconcileUC,
		backend:        backend,
		notifier:       notifier,
		webhooks:       webhooks,
		jwtSecret:      jwtSecret,
		requestTimeout: requestTimeout,
		log:            &compLog,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The webhook endpoint authenticates via signature, not JWT, and skips
	// the request timeout: handler failures are contained internally.
	r.Post("/webhook/stripe", s.webhooks.HandleStripe)

	r.Route("/api/v1", func(r chi.Router) {
		if s.requestTimeout > 0 {
			r.Use(Timeout(s.requestTimeout))
		}
		r.Use(Auth(s.jwtSecret))
		r.Post("/checkout/success", s.handleCheckoutSuccess)
		r.Get("/notifications", s.handleListNotifications)
		r.Get("/toasts", s.handleDrainToasts)
		r.Delete("/toasts/{id}", s.handleDismissToast)
	})

	return Chain(r, TraceID(), RequestLog(s.log), Recover(s.log))
}

// handleCheckoutSuccess runs the post-checkout reconciliation for the
// authenticated user. The session id arrives under "session_id" or the legacy
// alias "sessionId"; both feed the same sanitizer.
func (s *Server) handleCheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	raw := r.URL.Query().Get("session_id")
	if raw == "" {
		raw = r.URL.Query().Get("sessionId")
	}
	ctx := logging.WithSessID(r.Context(), raw)

	outcome, err := s.reconcileUC.Reconcile(ctx, userID, raw)
	if err != nil {
		// Context cancelled mid-run: the caller is gone, nothing to write.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		http.Error(w, "Failed to reconcile checkout", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if outcome.State == usecase.StateError && !outcome.Retryable {
		// Invalid session: terminal, no retry besides re-purchasing.
		code = http.StatusBadRequest
	}

	response := struct {
		*usecase.ReconcileOutcome
		Toasts any `json:"toasts"`
	}{
		ReconcileOutcome: outcome,
		Toasts:           s.notifier.Drain(userID),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	items, err := s.backend.PendingNotifications(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	response := struct {
		Data any `json:"data"`
	}{Data: items}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDrainToasts(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	response := struct {
		Data any `json:"data"`
	}{Data: s.notifier.Drain(userID)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	s.notifier.Dismiss(userID, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
