// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Options tune the connection pool.
type Options struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, opts Options, log logrus.FieldLogger) (*sql.DB, error) {
	conn, err := sql.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"max_open_conns": opts.MaxOpenConns,
		"max_idle_conns": opts.MaxIdleConns,
	}).Info("connected to database")
	return conn, nil
}

// WithTx runs fn inside a transaction, rolling back when fn fails.
func WithTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
