package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists homes as jsonb aggregates and the side tables
// (persons, templates, permits, ai_logs, messages) as plain rows.
type PostgresStore struct {
	db *sql.DB
	x  *sqlx.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, x: sqlx.NewDb(db, "pgx")}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
