// internal/model/welfare.go
package model

import "time"

const (
	WelfareDraft       = "DRAFT"
	WelfarePending     = "PENDING"
	WelfareUnderReview = "UNDER_REVIEW"
	WelfareApproved    = "APPROVED"
	WelfareRejected    = "REJECTED"
	WelfareInProgress  = "IN_PROGRESS"
	WelfareCompleted   = "COMPLETED"
	WelfareCancelled   = "CANCELLED"
)

// WelfareEditableStatuses are the statuses in which the requester may still edit.
var WelfareEditableStatuses = []string{WelfareDraft, WelfarePending}

var WelfareCategories = []string{
	"FINANCIAL_ASSISTANCE", "MEDICAL_SUPPORT", "EDUCATION_SUPPORT", "HOUSING_ASSISTANCE",
	"FOOD_ASSISTANCE", "EMPLOYMENT_SUPPORT", "COUNSELING", "EMERGENCY_RELIEF", "OTHER",
}

var WelfareUrgencyLevels = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

var WelfareRequestTypes = []string{"ONE_TIME", "RECURRING", "EMERGENCY"}

type WelfareRequest struct {
	ID               string     `db:"id" json:"id"`
	OrganizationID   string     `db:"organization_id" json:"organizationId"`
	RequesterID      string     `db:"requester_id" json:"requesterId"`
	RequesterName    *string    `db:"requester_name" json:"requesterName,omitempty"`
	MemberID         *string    `db:"member_id" json:"memberId"`
	Title            string     `db:"title" json:"title"`
	Description      string     `db:"description" json:"description"`
	Category         string     `db:"category" json:"category"`
	UrgencyLevel     string     `db:"urgency_level" json:"urgencyLevel"`
	RequestType      string     `db:"request_type" json:"requestType"`
	AmountRequested  *float64   `db:"amount_requested" json:"amountRequested"`
	CurrentSituation *string    `db:"current_situation" json:"currentSituation"`
	ExpectedOutcome  *string    `db:"expected_outcome" json:"expectedOutcome"`
	Status           string     `db:"status" json:"status"`
	Priority         int        `db:"priority" json:"priority"`
	ReviewedBy       *string    `db:"reviewed_by" json:"reviewedBy"`
	ReviewedAt       *time.Time `db:"reviewed_at" json:"reviewedAt"`
	ApprovedBy       *string    `db:"approved_by" json:"approvedBy"`
	ApprovedAt       *time.Time `db:"approved_at" json:"approvedAt"`
	RejectionReason  *string    `db:"rejection_reason" json:"rejectionReason"`
	FulfilledBy      *string    `db:"fulfilled_by" json:"fulfilledBy"`
	FulfilledAt      *time.Time `db:"fulfilled_at" json:"fulfilledAt"`
	ActualAmount     *float64   `db:"actual_amount" json:"actualAmount"`
	FulfillmentNotes *string    `db:"fulfillment_notes" json:"fulfillmentNotes"`
	FollowUpRequired bool       `db:"follow_up_required" json:"followUpRequired"`
	FollowUpDate     *time.Time `db:"follow_up_date" json:"followUpDate"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

type WelfareFilter struct {
	OrganizationID string
	RequesterID    string
	Status         string
	Category       string
	UrgencyLevel   string
}

type WelfareUpdate struct {
	Title            *string
	Description      *string
	Category         *string
	UrgencyLevel     *string
	RequestType      *string
	AmountRequested  *float64
	CurrentSituation *string
	ExpectedOutcome  *string
	MemberID         *string
}

func (u WelfareUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil && u.UrgencyLevel == nil &&
		u.RequestType == nil && u.AmountRequested == nil && u.CurrentSituation == nil &&
		u.ExpectedOutcome == nil && u.MemberID == nil
}

// WelfareTransition carries the stamps written alongside a status change.
type WelfareTransition struct {
	From             string
	To               string
	ActorID          string
	At               time.Time
	RejectionReason  *string
	ActualAmount     *float64
	FulfillmentNotes *string
	FollowUpRequired *bool
	FollowUpDate     *time.Time
}

// UrgencyPriority maps an urgency level to a sortable priority.
func UrgencyPriority(urgency string) int {
	switch urgency {
	case "CRITICAL":
		return 4
	case "HIGH":
		return 3
	case "MEDIUM":
		return 2
	case "LOW":
		return 1
	}
	return 0
}
