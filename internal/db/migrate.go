// internal/db/migrate.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Migrate applies every schema file in name order. Statements are idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
	return execDir(ctx, conn, "schema")
}

// Seed loads demo data for local development.
func Seed(ctx context.Context, conn *sql.DB) error {
	return execDir(ctx, conn, "seed")
}

func execDir(ctx context.Context, conn *sql.DB, prefix string) error {
	entries, err := sqlFiles.ReadDir("sql")
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := sqlFiles.ReadFile("sql/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute %s: %w", name, err)
		}
	}
	return nil
}
