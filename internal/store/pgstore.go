package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	OutcomeOK            = "ok"
	OutcomeRejected      = "rejected"
	OutcomeUpstreamError = "upstream_error"
)

// Exchange is one audited /chat call.
type Exchange struct {
	RequestID    string
	Doc          string
	MessageCount int
	Outcome      string
	Reason       string
	Excerpt      string
	Latency      time.Duration
}

// PgStore keeps an audit trail of chat exchanges in Postgres.
type PgStore struct {
	db *sql.DB
}

// NewPgStore connects to Postgres, pings it and ensures the schema.
func NewPgStore(ctx context.Context, conn string) (*PgStore, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Open wraps an existing handle and makes sure the schema exists.
func Open(ctx context.Context, db *sql.DB) (*PgStore, error) {
	if err := ensureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PgStore{db: db}, nil
}

// Record inserts one exchange.
func (s *PgStore) Record(ctx context.Context, e Exchange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_exchanges (request_id, doc_key, message_count, outcome, reason, excerpt, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.RequestID, nullable(e.Doc), e.MessageCount, e.Outcome, nullable(e.Reason), nullable(e.Excerpt), e.Latency.Milliseconds())
	return err
}

func (s *PgStore) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
