package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection pool with sane defaults.
func NewDB(connString string, maxConns int) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate creates the schema when it does not exist yet. Statements are
// idempotent so every process can run this at startup.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id          TEXT PRIMARY KEY,
			roll_number TEXT NOT NULL UNIQUE,
			card_id     TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			branch      TEXT NOT NULL,
			mobile      TEXT,
			email       TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id          TEXT PRIMARY KEY,
			roll_number TEXT NOT NULL,
			card_id     TEXT NOT NULL,
			name        TEXT NOT NULL,
			branch      TEXT NOT NULL,
			in_time     TIMESTAMPTZ NOT NULL,
			out_time    TIMESTAMPTZ,
			duration    TEXT,
			date_key    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_card_in ON attendance_records (card_id, in_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_records (date_key)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_open ON attendance_records (in_time) WHERE out_time IS NULL`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
