package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type WelfareRepositoryInterface interface {
	List(ctx context.Context, f model.WelfareFilter, offset, limit int) ([]*model.WelfareRequest, int, error)
	GetByID(ctx context.Context, id string) (*model.WelfareRequest, error)
	Create(ctx context.Context, w *model.WelfareRequest) error
	Update(ctx context.Context, id string, upd model.WelfareUpdate) error
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, id string, t model.WelfareTransition) error
}

type WelfareRepository struct {
	DB *sql.DB
}

const welfareColumns = `w.id, w.organization_id, w.requester_id, u.display_name, w.member_id, w.title,
	w.description, w.category, w.urgency_level, w.request_type, w.amount_requested, w.current_situation,
	w.expected_outcome, w.status, w.priority, w.reviewed_by, w.reviewed_at, w.approved_by, w.approved_at,
	w.rejection_reason, w.fulfilled_by, w.fulfilled_at, w.actual_amount, w.fulfillment_notes,
	w.follow_up_required, w.follow_up_date, w.created_at, w.updated_at`

const welfareFrom = `FROM welfare_requests w LEFT JOIN users u ON w.requester_id = u.id`

func scanWelfare(s rowScanner) (*model.WelfareRequest, error) {
	var w model.WelfareRequest
	err := s.Scan(&w.ID, &w.OrganizationID, &w.RequesterID, &w.RequesterName, &w.MemberID, &w.Title,
		&w.Description, &w.Category, &w.UrgencyLevel, &w.RequestType, &w.AmountRequested, &w.CurrentSituation,
		&w.ExpectedOutcome, &w.Status, &w.Priority, &w.ReviewedBy, &w.ReviewedAt, &w.ApprovedBy, &w.ApprovedAt,
		&w.RejectionReason, &w.FulfilledBy, &w.FulfilledAt, &w.ActualAmount, &w.FulfillmentNotes,
		&w.FollowUpRequired, &w.FollowUpDate, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List orders by urgency then age so critical requests surface first.
func (r *WelfareRepository) List(ctx context.Context, f model.WelfareFilter, offset, limit int) ([]*model.WelfareRequest, int, error) {
	wh := &where{}
	if f.OrganizationID != "" {
		wh.add("w.organization_id = $%[1]d", f.OrganizationID)
	}
	if f.RequesterID != "" {
		wh.add("w.requester_id = $%[1]d", f.RequesterID)
	}
	if f.Status != "" {
		wh.add("w.status = $%[1]d", f.Status)
	}
	if f.Category != "" {
		wh.add("w.category = $%[1]d", f.Category)
	}
	if f.UrgencyLevel != "" {
		wh.add("w.urgency_level = $%[1]d", f.UrgencyLevel)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM welfare_requests w `+wh.String(), wh.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := wh.next()
	query := `SELECT ` + welfareColumns + ` ` + welfareFrom + ` ` + wh.String() + `
		ORDER BY CASE w.urgency_level WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END,
		         w.created_at DESC
		LIMIT $` + itoa(n) + ` OFFSET $` + itoa(n+1)
	rows, err := r.DB.QueryContext(ctx, query, append(wh.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := []*model.WelfareRequest{}
	for rows.Next() {
		w, err := scanWelfare(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, w)
	}
	return requests, total, rows.Err()
}

func (r *WelfareRepository) GetByID(ctx context.Context, id string) (*model.WelfareRequest, error) {
	w, err := scanWelfare(r.DB.QueryRowContext(ctx, `SELECT `+welfareColumns+` `+welfareFrom+` WHERE w.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Welfare request")
		}
		return nil, err
	}
	return w, nil
}

func (r *WelfareRepository) Create(ctx context.Context, w *model.WelfareRequest) error {
	if w.ID == "" {
		w.ID = newID()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO welfare_requests (
			id, organization_id, requester_id, member_id, title, description, category, urgency_level,
			request_type, amount_requested, current_situation, expected_outcome, status, priority
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		w.ID, w.OrganizationID, w.RequesterID, w.MemberID, w.Title, w.Description, w.Category, w.UrgencyLevel,
		w.RequestType, w.AmountRequested, w.CurrentSituation, w.ExpectedOutcome, w.Status, w.Priority,
	)
	return err
}

func (r *WelfareRepository) Update(ctx context.Context, id string, upd model.WelfareUpdate) error {
	s := &setList{}
	if upd.Title != nil {
		s.add("title", *upd.Title)
	}
	if upd.Description != nil {
		s.add("description", *upd.Description)
	}
	if upd.Category != nil {
		s.add("category", *upd.Category)
	}
	if upd.UrgencyLevel != nil {
		s.add("urgency_level", *upd.UrgencyLevel)
		s.add("priority", model.UrgencyPriority(*upd.UrgencyLevel))
	}
	if upd.RequestType != nil {
		s.add("request_type", *upd.RequestType)
	}
	if upd.AmountRequested != nil {
		s.add("amount_requested", *upd.AmountRequested)
	}
	if upd.CurrentSituation != nil {
		s.add("current_situation", *upd.CurrentSituation)
	}
	if upd.ExpectedOutcome != nil {
		s.add("expected_outcome", *upd.ExpectedOutcome)
	}
	if upd.MemberID != nil {
		if *upd.MemberID == "" {
			s.add("member_id", nil)
		} else {
			s.add("member_id", *upd.MemberID)
		}
	}
	if s.empty() {
		return appErrors.BadRequest("No valid fields to update")
	}
	query, args := s.build("welfare_requests", id)
	query += " AND status = ANY($" + itoa(len(args)+1) + ")"
	args = append(args, pq.Array(model.WelfareEditableStatuses))
	return r.execGuarded(ctx, "Welfare request can no longer be modified", query, args...)
}

// execGuarded runs an update whose WHERE clause pins the current status.
// Matching nothing means the status moved underneath the caller.
func (r *WelfareRepository) execGuarded(ctx context.Context, conflict, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.Conflict(conflict)
	}
	return nil
}

func (r *WelfareRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "Welfare request", `DELETE FROM welfare_requests WHERE id = $1`, id)
}

// Transition moves a request from t.From to t.To, stamping the actor columns
// that belong to the target status. A concurrent change of status makes the
// update match nothing and is reported as a conflict.
func (r *WelfareRepository) Transition(ctx context.Context, id string, t model.WelfareTransition) error {
	s := &setList{}
	s.add("status", t.To)

	switch t.To {
	case model.WelfareUnderReview:
		s.add("reviewed_by", t.ActorID)
		s.add("reviewed_at", t.At)
	case model.WelfareApproved:
		s.add("approved_by", t.ActorID)
		s.add("approved_at", t.At)
		if t.From == model.WelfarePending {
			s.add("reviewed_by", t.ActorID)
			s.add("reviewed_at", t.At)
		}
	case model.WelfareRejected:
		s.add("reviewed_by", t.ActorID)
		s.add("reviewed_at", t.At)
		s.add("rejection_reason", t.RejectionReason)
	case model.WelfareInProgress:
		s.add("fulfilled_by", t.ActorID)
	case model.WelfareCompleted:
		s.add("fulfilled_by", t.ActorID)
		s.add("fulfilled_at", t.At)
		if t.ActualAmount != nil {
			s.add("actual_amount", *t.ActualAmount)
		}
		if t.FulfillmentNotes != nil {
			s.add("fulfillment_notes", *t.FulfillmentNotes)
		}
		if t.FollowUpRequired != nil {
			s.add("follow_up_required", *t.FollowUpRequired)
		}
		if t.FollowUpDate != nil {
			s.add("follow_up_date", *t.FollowUpDate)
		}
	}

	query, args := s.build("welfare_requests", id)
	query += " AND status = $" + itoa(len(args)+1)
	args = append(args, t.From)
	return r.execGuarded(ctx, "Welfare request status changed, reload and try again", query, args...)
}

var _ WelfareRepositoryInterface = (*WelfareRepository)(nil)
