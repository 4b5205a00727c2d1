// File: internal/infra/notify/service.go
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/domain/ports/adapter"
	"lms-checkout-gateway/internal/infra/metrics"
)

// Compile-time check
var _ adapter.Notifier = (*Service)(nil)

// Service is the in-process toast queue: bounded, injectable, owned by
// whoever calls Run. No package-level state; construct one and pass it down.
type Service struct {
	mu     sync.Mutex
	toasts []*model.Toast
	max    int
	log    *zerolog.Logger
}

func NewService(queueSize int, logger *zerolog.Logger) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	compLog := logger.With().Str("component", "NotifyService").Logger()
	return &Service{max: queueSize, log: &compLog}
}

// Push enqueues a toast, dropping the oldest entry when the queue is full.
// Never blocks.
func (s *Service) Push(t *model.Toast) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.toasts) >= s.max {
		s.toasts = s.toasts[1:]
		metrics.IncToastDropped()
		s.log.Debug().Msg("toast queue full, dropped oldest")
	}
	s.toasts = append(s.toasts, t)
}

// Drain returns and removes all live toasts for a user.
func (s *Service) Drain(userID string) []*model.Toast {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var mine, rest []*model.Toast
	for _, t := range s.toasts {
		switch {
		case t.ExpiresAt.Before(now):
			// expired, gone either way
		case t.UserID == userID:
			mine = append(mine, t)
		default:
			rest = append(rest, t)
		}
	}
	s.toasts = rest
	return mine
}

// Dismiss removes one toast by id.
func (s *Service) Dismiss(userID, toastID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.toasts {
		if t.ID == toastID && t.UserID == userID {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return
		}
	}
}

// Run expires old toasts until ctx is done. Lifecycle belongs to the caller;
// when the owner tears down, the queue dies with it.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.toasts = nil
			s.mu.Unlock()
			return ctx.Err()
		case now := <-ticker.C:
			s.expire(now)
		}
	}
}

func (s *Service) expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.toasts[:0]
	for _, t := range s.toasts {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	s.toasts = kept
}
