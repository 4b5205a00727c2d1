//go:build !integration

package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms-checkout-gateway/internal/domain"
	"lms-checkout-gateway/internal/domain/model"
	"lms-checkout-gateway/internal/infra/backend"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "test-api-key", 2*time.Second)
}

func TestClient_ConfirmCheckout(t *testing.T) {
	t.Run("decodes the enveloped result", func(t *testing.T) {
		// --- Arrange ---
		var gotPath, gotAuth string
		var gotBody map[string]string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"session_id":"cs_test_1","kind":"subscription","subscription":{"id":"sub-1","status":"active"}}}`))
		})

		// --- Act ---
		res, err := client.ConfirmCheckout(context.Background(), "cs_test_1", "user-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPath != "/api/v1/checkout/confirm" {
			t.Errorf("wrong path: %q", gotPath)
		}
		if gotAuth != "Bearer test-api-key" {
			t.Errorf("missing api key header: %q", gotAuth)
		}
		if gotBody["session_id"] != "cs_test_1" || gotBody["user_id"] != "user-1" {
			t.Errorf("request body wrong: %v", gotBody)
		}
		if !res.IsTerminalSuccess() {
			t.Errorf("expected terminal success, got %+v", res)
		}
	})

	t.Run("backend error envelope surfaces as an error", func(t *testing.T) {
		// --- Arrange ---
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":"SESSION_CONSUMED","message":"session already consumed"}}`))
		})

		// --- Act ---
		_, err := client.ConfirmCheckout(context.Background(), "cs_test_1", "user-1")

		// --- Assert ---
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		// --- Arrange ---
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		// --- Act ---
		_, err := client.CurrentSubscription(context.Background(), "user-1")

		// --- Assert ---
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("5xx maps to ErrBackendUnavailable", func(t *testing.T) {
		// --- Arrange ---
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		// --- Act ---
		_, err := client.ConfirmCheckout(context.Background(), "cs_test_1", "user-1")

		// --- Assert ---
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Fatalf("expected ErrBackendUnavailable, got %v", err)
		}
	})

	t.Run("non-JSON body maps to ErrMalformedResponse", func(t *testing.T) {
		// --- Arrange ---
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>gateway error</html>`))
		})

		// --- Act ---
		_, err := client.ConfirmCheckout(context.Background(), "cs_test_1", "user-1")

		// --- Assert ---
		if !errors.Is(err, domain.ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("null data maps to ErrMalformedResponse", func(t *testing.T) {
		// --- Arrange ---
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":null}`))
		})

		// --- Act ---
		_, err := client.ConfirmCheckout(context.Background(), "cs_test_1", "user-1")

		// --- Assert ---
		if !errors.Is(err, domain.ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("unreachable backend maps to ErrBackendUnavailable", func(t *testing.T) {
		// --- Arrange ---
		client := backend.NewClient("http://127.0.0.1:1", "key", 200*time.Millisecond)

		// --- Act ---
		_, err := client.ConfirmCheckout(context.Background(), "cs_test_1", "user-1")

		// --- Assert ---
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Fatalf("expected ErrBackendUnavailable, got %v", err)
		}
	})
}

func TestClient_Reads(t *testing.T) {
	t.Run("pending notifications decodes a list", func(t *testing.T) {
		// --- Arrange ---
		var gotPath string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_, _ = w.Write([]byte(`{"data":[{"id":"n1","user_id":"user-1","title":"Payment received"}]}`))
		})

		// --- Act ---
		items, err := client.PendingNotifications(context.Background(), "user-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPath != "/api/v1/users/user-1/notifications/pending" {
			t.Errorf("wrong path: %q", gotPath)
		}
		if len(items) != 1 || items[0].ID != "n1" {
			t.Errorf("expected notification n1, got %v", items)
		}
	})

	t.Run("course purchase lookup carries the session filter", func(t *testing.T) {
		// --- Arrange ---
		var gotSession string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotSession = r.URL.Query().Get("session_id")
			_, _ = w.Write([]byte(`{"data":{"id":"pur-1","status":"completed"}}`))
		})

		// --- Act ---
		p, err := client.CoursePurchaseBySession(context.Background(), "user-1", "cs_test_9")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotSession != "cs_test_9" {
			t.Errorf("session filter lost: %q", gotSession)
		}
		if p.Status != model.PurchaseStatusCompleted {
			t.Errorf("expected completed purchase, got %+v", p)
		}
	})

	t.Run("sync subscription sends the snapshot", func(t *testing.T) {
		// --- Arrange ---
		var got model.Subscription
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"data":{}}`))
		})
		sub := &model.Subscription{ID: "sub-1", UserID: "user-1", Status: model.SubscriptionStatusActive}

		// --- Act ---
		err := client.SyncSubscription(context.Background(), sub)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.ID != "sub-1" || got.Status != model.SubscriptionStatusActive {
			t.Errorf("snapshot lost in transit: %+v", got)
		}
	})
}
