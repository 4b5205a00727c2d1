package main

import (
	"context"
	"flag"
	"log"

	"lms-checkout-gateway/internal/config"
	"lms-checkout-gateway/internal/infra/db/postgres"
)

// Creates the service's local tables: the webhook event journal and the
// notification dedupe log. Safe to re-run.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS webhook_events (
			id          UUID PRIMARY KEY,
			event_id    TEXT NOT NULL UNIQUE,
			type        TEXT NOT NULL,
			session_id  TEXT NOT NULL DEFAULT '',
			user_id     TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			detail      TEXT NOT NULL DEFAULT '',
			received_at TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS webhook_events_sweep_idx
			ON webhook_events (status, updated_at);

		CREATE TABLE IF NOT EXISTS notification_log (
			subscription_id TEXT NOT NULL,
			user_id         TEXT NOT NULL,
			kind            TEXT NOT NULL,
			threshold_days  INT  NOT NULL,
			sent_at         TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (subscription_id, kind, threshold_days)
		);
	`)
	if err != nil {
		log.Fatalf("failed to create tables: %v", err)
	}

	log.Println("schema is up to date")
}
