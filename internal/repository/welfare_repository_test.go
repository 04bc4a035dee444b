package repository

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

func TestWelfareTransitionStampsReviewer(t *testing.T) {
	conn, mock := newMock(t)
	repo := &WelfareRepository{DB: conn}
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	reason := "Outside welfare policy"

	mock.ExpectExec(`UPDATE welfare_requests SET status = \$1, reviewed_by = \$2, reviewed_at = \$3, rejection_reason = \$4, updated_at = NOW\(\) WHERE id = \$5 AND status = \$6`).
		WithArgs(model.WelfareRejected, "leader-1", at, &reason, "w1", model.WelfarePending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transition(context.Background(), "w1", model.WelfareTransition{
		From:            model.WelfarePending,
		To:              model.WelfareRejected,
		ActorID:         "leader-1",
		At:              at,
		RejectionReason: &reason,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWelfareTransitionDetectsConcurrentChange(t *testing.T) {
	conn, mock := newMock(t)
	repo := &WelfareRepository{DB: conn}

	mock.ExpectExec(`UPDATE welfare_requests SET status = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Transition(context.Background(), "w1", model.WelfareTransition{
		From:    model.WelfareApproved,
		To:      model.WelfareInProgress,
		ActorID: "admin-1",
		At:      time.Now(),
	})
	assert.Equal(t, http.StatusConflict, appErrors.StatusOf(err))
}

func TestWelfareUpdateRecomputesPriority(t *testing.T) {
	conn, mock := newMock(t)
	repo := &WelfareRepository{DB: conn}
	urgency := "CRITICAL"

	mock.ExpectExec(`UPDATE welfare_requests SET urgency_level = \$1, priority = \$2, updated_at = NOW\(\) WHERE id = \$3 AND status = ANY\(\$4\)`).
		WithArgs("CRITICAL", 4, "w1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "w1", model.WelfareUpdate{UrgencyLevel: &urgency}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWelfareUpdateRefusesReviewedRequest(t *testing.T) {
	conn, mock := newMock(t)
	repo := &WelfareRepository{DB: conn}
	title := "Rent support"

	mock.ExpectExec(`UPDATE welfare_requests SET title = \$1, updated_at = NOW\(\) WHERE id = \$2 AND status = ANY\(\$3\)`).
		WithArgs(title, "w1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "w1", model.WelfareUpdate{Title: &title})
	assert.Equal(t, http.StatusConflict, appErrors.StatusOf(err))
	assert.EqualError(t, err, "Welfare request can no longer be modified")
	assert.NoError(t, mock.ExpectationsWereMet())
}
