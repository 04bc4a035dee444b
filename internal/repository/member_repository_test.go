package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

var memberCols = []string{"id", "organization_id", "name", "first_name", "last_name", "email", "phone",
	"address", "date_of_birth", "gender", "marital_status", "member_since", "member_type", "status",
	"emergency_contact_name", "emergency_contact_phone", "notes", "tags", "created_at", "updated_at"}

func memberRow(id, first, last string) []driver.Value {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{id, "org-1", "Grace Church", first, last, first + "@example.com", nil,
		nil, nil, "female", nil, nil, "regular", "active", nil, nil, nil, []byte(`["choir"]`), now, now}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func TestMemberListBuildsFiltersAndCounts(t *testing.T) {
	conn, mock := newMock(t)
	repo := &MemberRepository{DB: conn}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM members m WHERE m.organization_id = \$1 AND \(m.first_name ILIKE \$2 OR m.last_name ILIKE \$2 OR m.email ILIKE \$2 OR m.phone ILIKE \$2\) AND m.status = \$3`).
		WithArgs("org-1", "%ali%", "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows(memberCols)
	rows.AddRow(memberRow("m1", "Alice", "Wanjiru")...)
	mock.ExpectQuery(`ORDER BY m.first_name, m.last_name LIMIT \$4 OFFSET \$5`).
		WithArgs("org-1", "%ali%", "active", 20, 0).
		WillReturnRows(rows)

	members, total, err := repo.List(context.Background(), model.MemberFilter{
		OrganizationID: "org-1",
		Search:         "ali",
		Status:         "active",
	}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, members, 1)
	assert.Equal(t, "Alice", members[0].FirstName)
	assert.Equal(t, model.StringList{"choir"}, members[0].Tags)
	assert.Equal(t, "Grace Church", *members[0].OrganizationName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberGetByIDNotFound(t *testing.T) {
	conn, mock := newMock(t)
	repo := &MemberRepository{DB: conn}

	mock.ExpectQuery(`WHERE m.id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestMemberUpdate(t *testing.T) {
	conn, mock := newMock(t)
	repo := &MemberRepository{DB: conn}

	status := "inactive"
	first := "Alicia"
	mock.ExpectExec(`UPDATE members SET first_name = \$1, status = \$2, updated_at = NOW\(\) WHERE id = \$3`).
		WithArgs("Alicia", "inactive", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "m1", model.MemberUpdate{FirstName: &first, Status: &status}))

	err := repo.Update(context.Background(), "m1", model.MemberUpdate{})
	assert.Equal(t, "No valid fields to update", err.Error())

	mock.ExpectExec(`UPDATE members`).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(context.Background(), "gone", model.MemberUpdate{Status: &status})
	assert.True(t, appErrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberExistsByEmailIsScopedToOrganization(t *testing.T) {
	conn, mock := newMock(t)
	repo := &MemberRepository{DB: conn}

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM members WHERE organization_id = \$1 AND LOWER\(email\) = LOWER\(\$2\) AND id <> \$3\)`).
		WithArgs("org-1", "alice@example.com", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "org-1", "alice@example.com", "")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemberMatchingQueries(t *testing.T) {
	conn, mock := newMock(t)
	repo := &MemberRepository{DB: conn}
	ctx := context.Background()

	mock.ExpectQuery(`EXTRACT\(MONTH FROM m.date_of_birth\) = \$2`).
		WithArgs("org-1", 3, 14).
		WillReturnRows(sqlmock.NewRows(memberCols).AddRow(memberRow("m1", "Alice", "Wanjiru")...))
	members, err := repo.FindByBirthday(ctx, "org-1", time.March, 14)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	mock.ExpectQuery(`EXTRACT\(YEAR FROM m.member_since\) < \$4`).
		WithArgs("org-1", 6, 1, 2026).
		WillReturnRows(sqlmock.NewRows(memberCols))
	members, err = repo.FindByAnniversary(ctx, "org-1", time.June, 1, 2026)
	require.NoError(t, err)
	assert.Empty(t, members)

	mock.ExpectQuery(`m.member_since = \$2::date`).
		WithArgs("org-1", "2026-10-11").
		WillReturnRows(sqlmock.NewRows(memberCols))
	_, err = repo.FindJoinedOn(ctx, "org-1", time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	since := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`NOT EXISTS \(\s+SELECT 1 FROM member_activities a`).
		WithArgs("org-1", since).
		WillReturnRows(sqlmock.NewRows(memberCols))
	_, err = repo.FindAbsentSince(ctx, "org-1", since)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
