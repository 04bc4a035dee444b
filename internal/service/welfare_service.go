package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

// welfareTransitions lists the statuses reachable from each status.
var welfareTransitions = map[string][]string{
	model.WelfareDraft:       {model.WelfarePending, model.WelfareCancelled},
	model.WelfarePending:     {model.WelfareUnderReview, model.WelfareApproved, model.WelfareRejected, model.WelfareCancelled},
	model.WelfareUnderReview: {model.WelfareApproved, model.WelfareRejected},
	model.WelfareApproved:    {model.WelfareInProgress, model.WelfareCompleted, model.WelfareCancelled},
	model.WelfareInProgress:  {model.WelfareCompleted},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to string) bool {
	return contains(welfareTransitions[from], to)
}

type WelfareQuery struct {
	OrganizationID string
	Status         string
	Category       string
	UrgencyLevel   string
	Mine           bool
	Page           Page
}

type WelfareInput struct {
	OrganizationID   string   `json:"organizationId"`
	MemberID         string   `json:"memberId"`
	Title            string   `json:"title" validate:"required,max=200"`
	Description      string   `json:"description" validate:"required"`
	Category         string   `json:"category" validate:"required,oneof=FINANCIAL_ASSISTANCE MEDICAL_SUPPORT EDUCATION_SUPPORT HOUSING_ASSISTANCE FOOD_ASSISTANCE EMPLOYMENT_SUPPORT COUNSELING EMERGENCY_RELIEF OTHER"`
	UrgencyLevel     string   `json:"urgencyLevel" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	RequestType      string   `json:"requestType" validate:"required,oneof=ONE_TIME RECURRING EMERGENCY"`
	AmountRequested  *float64 `json:"amountRequested" validate:"omitempty,gte=0"`
	CurrentSituation string   `json:"currentSituation"`
	ExpectedOutcome  string   `json:"expectedOutcome"`
	Status           string   `json:"status" validate:"omitempty,oneof=DRAFT PENDING"`
}

type WelfarePatch struct {
	Title            *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string  `json:"description" validate:"omitempty,min=1"`
	Category         *string  `json:"category" validate:"omitempty,oneof=FINANCIAL_ASSISTANCE MEDICAL_SUPPORT EDUCATION_SUPPORT HOUSING_ASSISTANCE FOOD_ASSISTANCE EMPLOYMENT_SUPPORT COUNSELING EMERGENCY_RELIEF OTHER"`
	UrgencyLevel     *string  `json:"urgencyLevel" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	RequestType      *string  `json:"requestType" validate:"omitempty,oneof=ONE_TIME RECURRING EMERGENCY"`
	AmountRequested  *float64 `json:"amountRequested" validate:"omitempty,gte=0"`
	CurrentSituation *string  `json:"currentSituation"`
	ExpectedOutcome  *string  `json:"expectedOutcome"`
	MemberID         *string  `json:"memberId"`
}

type TransitionInput struct {
	Status           string   `json:"status" validate:"required,oneof=DRAFT PENDING UNDER_REVIEW APPROVED REJECTED IN_PROGRESS COMPLETED CANCELLED"`
	RejectionReason  string   `json:"rejectionReason"`
	ActualAmount     *float64 `json:"actualAmount" validate:"omitempty,gte=0"`
	FulfillmentNotes string   `json:"fulfillmentNotes"`
	FollowUpRequired *bool    `json:"followUpRequired"`
	FollowUpDate     string   `json:"followUpDate" validate:"omitempty,dateformat"`
}

type WelfareService struct {
	Requests  repository.WelfareRepositoryInterface
	Members   repository.MemberRepositoryInterface
	Validator *validator.Validator
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// List shows reviewers the whole organization and everyone else their own requests.
func (s *WelfareService) List(ctx context.Context, p auth.Principal, q WelfareQuery) (*List[*model.WelfareRequest], error) {
	if err := requirePermission(p, auth.PermSubmitWelfare, auth.PermReviewWelfare); err != nil {
		return nil, err
	}
	orgID, err := organization(p, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	f := model.WelfareFilter{
		OrganizationID: orgID,
		Status:         q.Status,
		Category:       q.Category,
		UrgencyLevel:   q.UrgencyLevel,
	}
	if q.Mine || !p.Can(auth.PermReviewWelfare) {
		f.RequesterID = p.UserID
	}

	requests, total, err := s.Requests.List(ctx, f, q.Page.Offset(), q.Page.Limit)
	if err != nil {
		return nil, err
	}
	return &List[*model.WelfareRequest]{Items: requests, Total: total, Page: q.Page}, nil
}

func (s *WelfareService) Get(ctx context.Context, p auth.Principal, id string) (*model.WelfareRequest, error) {
	w, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.RequesterID == p.UserID {
		return w, nil
	}
	if err := requirePermission(p, auth.PermReviewWelfare); err != nil {
		return nil, err
	}
	if err := checkOrganization(p, w.OrganizationID); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WelfareService) Create(ctx context.Context, p auth.Principal, in WelfareInput) (*model.WelfareRequest, error) {
	if err := requirePermission(p, auth.PermSubmitWelfare); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	orgID, err := organization(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMember(ctx, orgID, in.MemberID); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.WelfarePending
	}
	w := &model.WelfareRequest{
		OrganizationID:   orgID,
		RequesterID:      p.UserID,
		MemberID:         stringOrNil(in.MemberID),
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		UrgencyLevel:     in.UrgencyLevel,
		RequestType:      in.RequestType,
		AmountRequested:  in.AmountRequested,
		CurrentSituation: stringOrNil(in.CurrentSituation),
		ExpectedOutcome:  stringOrNil(in.ExpectedOutcome),
		Status:           status,
		Priority:         model.UrgencyPriority(in.UrgencyLevel),
	}
	if err := s.Requests.Create(ctx, w); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"request_id": w.ID,
		"category":   w.Category,
		"urgency":    w.UrgencyLevel,
	}).Info("welfare request submitted")
	return s.Requests.GetByID(ctx, w.ID)
}

// Update is open to the requester while the request is a draft or pending.
func (s *WelfareService) Update(ctx context.Context, p auth.Principal, id string, in WelfarePatch) (*model.WelfareRequest, error) {
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	w, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.RequesterID != p.UserID {
		return nil, appErrors.Forbidden("You can only modify your own welfare requests")
	}
	if w.Status != model.WelfareDraft && w.Status != model.WelfarePending {
		return nil, appErrors.BadRequest("Only draft or pending requests can be modified")
	}
	if in.MemberID != nil {
		if err := s.checkMember(ctx, w.OrganizationID, *in.MemberID); err != nil {
			return nil, err
		}
	}

	upd := model.WelfareUpdate{
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		UrgencyLevel:     in.UrgencyLevel,
		RequestType:      in.RequestType,
		AmountRequested:  in.AmountRequested,
		CurrentSituation: in.CurrentSituation,
		ExpectedOutcome:  in.ExpectedOutcome,
		MemberID:         in.MemberID,
	}
	if upd.Empty() {
		return nil, appErrors.BadRequest("No valid fields to update")
	}
	if err := s.Requests.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Requests.GetByID(ctx, id)
}

// checkMember requires a linked member to belong to the request's organization.
func (s *WelfareService) checkMember(ctx context.Context, orgID, memberID string) error {
	if memberID == "" {
		return nil
	}
	m, err := s.Members.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if m.OrganizationID != orgID {
		return appErrors.BadRequest("Member does not belong to this organization")
	}
	return nil
}

// Delete allows the requester to discard a draft, and admins anything in
// their reach.
func (s *WelfareService) Delete(ctx context.Context, p auth.Principal, id string) error {
	w, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case p.IsAdmin():
		if err := checkOrganization(p, w.OrganizationID); err != nil {
			return err
		}
	case w.RequesterID == p.UserID:
		if w.Status != model.WelfareDraft {
			return appErrors.BadRequest("Only draft requests can be deleted")
		}
	default:
		return appErrors.Forbidden("")
	}
	return s.Requests.Delete(ctx, id)
}

// Transition moves a request through its lifecycle. Submitting and cancelling
// belong to the requester; every other move needs review_welfare.
func (s *WelfareService) Transition(ctx context.Context, p auth.Principal, id string, in TransitionInput) (*model.WelfareRequest, error) {
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	w, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(w.Status, in.Status) {
		return nil, appErrors.BadRequest("Cannot change status from " + w.Status + " to " + in.Status)
	}

	requester := w.RequesterID == p.UserID
	switch in.Status {
	case model.WelfarePending:
		if !requester {
			return nil, appErrors.Forbidden("Only the requester can submit a request")
		}
	case model.WelfareCancelled:
		if !requester && !p.Can(auth.PermReviewWelfare) {
			return nil, appErrors.Forbidden("")
		}
	default:
		if err := requirePermission(p, auth.PermReviewWelfare); err != nil {
			return nil, err
		}
	}
	if !requester {
		if err := checkOrganization(p, w.OrganizationID); err != nil {
			return nil, err
		}
	}

	t := model.WelfareTransition{
		From:             w.Status,
		To:               in.Status,
		ActorID:          p.UserID,
		At:               s.Now(),
		ActualAmount:     in.ActualAmount,
		FulfillmentNotes: stringOrNil(in.FulfillmentNotes),
		FollowUpRequired: in.FollowUpRequired,
	}
	if in.Status == model.WelfareRejected {
		t.RejectionReason = stringOrNil(in.RejectionReason)
		if t.RejectionReason == nil {
			return nil, appErrors.BadRequest("Rejection reason is required")
		}
	}
	if t.FollowUpDate, err = parseDate("followUpDate", in.FollowUpDate); err != nil {
		return nil, err
	}

	if err := s.Requests.Transition(ctx, id, t); err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{
		"request_id": id,
		"from":       t.From,
		"to":         t.To,
		"actor":      p.UserID,
	}).Info("welfare request status changed")
	return s.Requests.GetByID(ctx, id)
}
