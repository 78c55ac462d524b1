package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderExists     = errors.New("order already exists")
	ErrVersionConflict = errors.New("order was modified concurrently")
)

type Store struct {
	db     *sql.DB
	dbType string // "postgres" or "sqlite"
}

// New opens the database named by dsn and applies the schema. An empty dsn or
// one prefixed with "sqlite:" selects SQLite, anything else is handed to pgx.
func New(ctx context.Context, dsn string) (*Store, error) {
	var db *sql.DB
	var err error
	var dbType string

	if dsn == "" || strings.HasPrefix(dsn, "sqlite:") {
		dbType = "sqlite"
		path := "gacha.db"
		if strings.HasPrefix(dsn, "sqlite:") {
			path = strings.TrimPrefix(dsn, "sqlite:")
		}
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		// a single connection keeps the pragma applied and serializes writers
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		dbType = "postgres"
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	store := &Store{db: db, dbType: dbType}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.dbType == "sqlite" {
		schema = sqliteSchema
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites ? placeholders into the numbered form postgres expects.
func (s *Store) rebind(query string) string {
	if s.dbType == "sqlite" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
    order_number INTEGER PRIMARY KEY,
    discord_user_id TEXT NOT NULL,
    discord_username TEXT NOT NULL,
    pulls TEXT NOT NULL,
    pulled_names TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pull_events (
    id TEXT PRIMARY KEY,
    order_number INTEGER NOT NULL REFERENCES orders(order_number),
    action TEXT NOT NULL,
    slot INTEGER,
    sku TEXT,
    product_name TEXT,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_discord_user ON orders(discord_user_id);
CREATE INDEX IF NOT EXISTS idx_pull_events_order ON pull_events(order_number, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS orders (
    order_number BIGINT PRIMARY KEY,
    discord_user_id TEXT NOT NULL,
    discord_username TEXT NOT NULL,
    pulls TEXT NOT NULL,
    pulled_names TEXT NOT NULL DEFAULT '',
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pull_events (
    id UUID PRIMARY KEY,
    order_number BIGINT NOT NULL REFERENCES orders(order_number),
    action TEXT NOT NULL,
    slot SMALLINT,
    sku TEXT,
    product_name TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_discord_user ON orders(discord_user_id);
CREATE INDEX IF NOT EXISTS idx_pull_events_order ON pull_events(order_number, created_at);
`

func nullableInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	val := int(n.Int64)
	return &val
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	val := s.String
	return &val
}
