package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/churchcare-backend/internal/model"
)

func TestDateFilter(t *testing.T) {
	clause, args := dateFilter("created_at", model.DateRange{}, 12, 2)
	assert.Equal(t, " AND created_at >= NOW() - INTERVAL '12 months'", clause)
	assert.Empty(t, args)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	clause, args = dateFilter("created_at", model.DateRange{Start: &start, End: &end}, 12, 2)
	assert.Equal(t, " AND created_at BETWEEN $2 AND $3", clause)
	assert.Equal(t, []any{start, end}, args)

	clause, _ = dateFilter("created_at", model.DateRange{Start: &start}, 6, 2)
	assert.Contains(t, clause, "INTERVAL '6 months'")
}

func TestMemberAnalyticsNormalizesNumericColumns(t *testing.T) {
	conn, mock := newMock(t)
	repo := &AnalyticsRepository{DB: conn}

	mock.ExpectQuery(`to_char\(created_at, 'YYYY-MM'\) AS month`).WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"month", "new_members"}).AddRow("2026-09", int64(4)))
	mock.ExpectQuery(`GROUP BY gender`).WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"gender", "count"}).AddRow("female", int64(3)))
	mock.ExpectQuery(`GROUP BY age_group`).WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"age_group", "count"}).AddRow("18-30", int64(2)))
	mock.ExpectQuery(`GROUP BY member_type`).WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"member_type", "count"}))
	mock.ExpectQuery(`GROUP BY marital_status`).WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"marital_status", "count"}).AddRow([]byte("married"), []byte("1.50")))

	out, err := repo.Members(context.Background(), "org-1", model.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "2026-09", out.MemberGrowth[0]["month"])
	assert.Equal(t, int64(4), out.MemberGrowth[0]["new_members"])
	assert.Equal(t, "married", out.Demographics.MaritalStatus[0]["marital_status"])
	assert.Equal(t, 1.5, out.Demographics.MaritalStatus[0]["count"])
	assert.Empty(t, out.Demographics.MemberTypes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWelfareStats(t *testing.T) {
	conn, mock := newMock(t)
	repo := &AnalyticsRepository{DB: conn}
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM welfare_requests\s+WHERE organization_id = \$1`).
		WithArgs("org-1", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e"}).AddRow(3, 2, 5, []byte("12500.00"), 4))
	mock.ExpectQuery(`GROUP BY category`).WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).AddRow("MEDICAL_SUPPORT", int64(2)))

	stats, err := repo.Welfare(context.Background(), "org-1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PendingRequests)
	assert.Equal(t, 2, stats.ApprovedRequests)
	assert.Equal(t, 5, stats.CompletedRequests)
	assert.Equal(t, 12500.0, stats.TotalDisbursed)
	assert.Equal(t, 4, stats.RequestsThisMonth)
	assert.Len(t, stats.ByCategory, 1)
}
