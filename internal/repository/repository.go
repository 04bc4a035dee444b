package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// where accumulates AND-ed filter clauses with numbered placeholders.
type where struct {
	clauses []string
	args    []any
}

// add appends a clause; every %[1]d in format becomes the new arg's placeholder.
func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return "WHERE 1=1"
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// next is the index the following placeholder should use.
func (w *where) next() int {
	return len(w.args) + 1
}

// setList builds the SET clause of a partial update.
type setList struct {
	sets []string
	args []any
}

func (s *setList) add(column string, value any) {
	s.args = append(s.args, value)
	s.sets = append(s.sets, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setList) empty() bool {
	return len(s.sets) == 0
}

// build returns "UPDATE table SET ..., updated_at = NOW() WHERE id = $n".
func (s *setList) build(table, id string) (string, []any) {
	args := append(s.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d",
		table, strings.Join(s.sets, ", "), len(args))
	return query, args
}

func newID() string {
	return uuid.NewString()
}

// isUniqueViolation reports a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// scanRows turns an arbitrary result set into column-keyed rows.
func scanRows(rows *sql.Rows) ([]model.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []model.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalize converts driver values into JSON-friendly ones. NUMERIC arrives
// as text from lib/pq.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		s := string(val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return val
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// execAffectingOne runs a write and reports NotFound when no row matched.
func execAffectingOne(ctx context.Context, db execer, resource, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Conflict(resource + " already exists")
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NotFound(resource)
	}
	return nil
}
