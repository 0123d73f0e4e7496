package postgres

import (
	"context"
	"fmt"
)

// sessions_no_overlap backs the application overlap check: two live
// sessions of one client can never share an instant, even when concurrent
// requests both pass the check before either commits.
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS session_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 60,
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	session_type_id TEXT NOT NULL REFERENCES session_types(id),
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	location_text TEXT NOT NULL DEFAULT '',
	specific_address TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	status TEXT NOT NULL DEFAULT 'booked',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT sessions_time_order CHECK (start_at < end_at)
);

CREATE INDEX IF NOT EXISTS idx_sessions_client_start ON sessions(client_id, start_at);
CREATE INDEX IF NOT EXISTS idx_sessions_client_end ON sessions(client_id, end_at);

DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'sessions_no_overlap') THEN
		ALTER TABLE sessions ADD CONSTRAINT sessions_no_overlap
			EXCLUDE USING gist (client_id WITH =, tstzrange(start_at, end_at, '[)') WITH &&)
			WHERE (status <> 'canceled');
	END IF;
END $$;

CREATE TABLE IF NOT EXISTS availability_rules (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	rule JSONB NOT NULL,
	valid_from DATE,
	valid_to DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_availability_rules_owner_created ON availability_rules(owner_id, created_at DESC);
`

func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
