// Package sqlstore is the relational user store. The same repository serves
// PostgreSQL (through the pgx stdlib driver) and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/infrastructure/db/sqlstore/migrations"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "pgx"
}

func (d Dialect) gooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == SQLite {
		return sq.Question
	}
	return sq.Dollar
}

// Config captures connection settings for either dialect.
type Config struct {
	Dialect Dialect
	DSN     string
	Timeout time.Duration
}

// DB wraps the connection pool together with the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects, pings and migrates the schema.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	conn, err := sql.Open(cfg.Dialect.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	if cfg.Dialect == SQLite {
		// a single writer avoids SQLITE_BUSY under concurrent inserts
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(4)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sql ping: %w", err)
	}

	if err := migrations.Up(conn, cfg.Dialect.gooseDialect()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info().Str("dialect", string(cfg.Dialect)).Msg("connected to database")
	return &DB{DB: conn, Dialect: cfg.Dialect}, nil
}

// Ping satisfies the readiness checker.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
