package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements applied at startup when DATABASE_AUTO_MIGRATE is set.
// The partial unique index on active event codes enforces the invariant the
// check-in lookup relies on: at most one active event per code. The unique
// index on (user_id, event_id) backstops the duplicate check in Admit.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id                   UUID PRIMARY KEY,
		name                 TEXT NOT NULL,
		event_code           CHAR(4) NOT NULL,
		is_active            BOOLEAN NOT NULL DEFAULT false,
		start_date           TIMESTAMPTZ,
		end_date             TIMESTAMPTZ,
		location             TEXT,
		participants         TEXT[] NOT NULL DEFAULT '{}',
		current_participants INTEGER NOT NULL DEFAULT 0,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_active_code
		ON events (event_code) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS registrations (
		id            UUID PRIMARY KEY,
		user_id       TEXT NOT NULL,
		event_id      UUID NOT NULL REFERENCES events(id),
		registered_at TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_user_event
		ON registrations (user_id, event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_user
		ON registrations (user_id, registered_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id            UUID PRIMARY KEY,
		actor_id      TEXT,
		actor_email   TEXT,
		actor_role    TEXT,
		action        TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT,
		status        INTEGER NOT NULL,
		ip_address    TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
