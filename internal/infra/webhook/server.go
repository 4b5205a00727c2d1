// File: internal/infra/webhook/server.go
package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82/webhook"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/infra/metrics"
	"lms-checkout-gateway/internal/usecase"
)

const maxBodyBytes = 1 << 20 // 1MiB

// Server is the external-facing webhook receiver. Signature verification is
// the authentication mechanism for this endpoint: an unverifiable delivery is
// rejected with 400 and nothing is processed.
type Server struct {
	uc     usecase.WebhookUseCase
	secret string
	log    *zerolog.Logger
}

func NewServer(uc usecase.WebhookUseCase, signingSecret string, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "WebhookServer").Logger()
	return &Server{uc: uc, secret: signingSecret, log: &compLog}
}

// HandleStripe is mounted at POST /webhook/stripe.
func (s *Server) HandleStripe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), s.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		// Fail closed. Missing and invalid signatures get the same answer.
		metrics.IncWebhookSignatureFailure()
		s.log.Warn().Err(err).Msg("webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	status, err := s.uc.HandleEvent(r.Context(), event.ID, string(event.Type), event.Data.Raw)
	switch {
	case errors.Is(err, domain.ErrAlreadyProcessed), errors.Is(err, domain.ErrEventInFlight):
		s.ack(w, "duplicate")
		return
	case err != nil:
		// Journal-level fault. Still unexpected at the top level, so 500;
		// the platform will redeliver.
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("webhook processing failed")
		http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
		return
	}

	// Individually-failed handlers are acknowledged too; their outcome lives
	// in the journal and the logs, not in the HTTP status.
	s.ack(w, string(status))
}

func (s *Server) ack(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"received": true,
		"status":   status,
	})
}
