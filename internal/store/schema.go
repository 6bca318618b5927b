package store

import (
	"context"
	"database/sql"
)

// ensureSchema creates the audit table and its lookup index.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_exchanges (
			id SERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			doc_key TEXT,
			message_count INT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT,
			excerpt TEXT,
			latency_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS chat_exchanges_created_at_idx ON chat_exchanges (created_at)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
