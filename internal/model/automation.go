// internal/model/automation.go
package model

import "time"

const (
	TriggerBirthday          = "birthday"
	TriggerAnniversary       = "anniversary"
	TriggerNewMember         = "new_member"
	TriggerAttendanceAbsence = "attendance_absence"
	TriggerDateBased         = "date_based"
	TriggerManual            = "manual"

	ActionSendMessage  = "send_message"
	ActionCreateNote   = "create_note"
	ActionAssignTask   = "assign_task"
	ActionNotification = "notification"

	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
	LogStatusSkipped = "skipped"
)

type AutomationRule struct {
	ID                string     `db:"id" json:"id"`
	OrganizationID    string     `db:"organization_id" json:"organizationId"`
	Name              string     `db:"name" json:"name"`
	Description       *string    `db:"description" json:"description"`
	TriggerType       string     `db:"trigger_type" json:"triggerType"`
	TriggerConditions JSONMap    `db:"trigger_conditions" json:"triggerConditions"`
	ActionType        string     `db:"action_type" json:"actionType"`
	ActionConfig      JSONMap    `db:"action_config" json:"actionConfig"`
	IsActive          bool       `db:"is_active" json:"isActive"`
	CreatedBy         *string    `db:"created_by" json:"createdBy"`
	CreatedByName     *string    `db:"created_by_name" json:"createdByName,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
	Stats             *RuleStats `db:"-" json:"stats,omitempty"`
}

func (r *AutomationRule) CreatedByValue() string {
	if r.CreatedBy == nil {
		return ""
	}
	return *r.CreatedBy
}

// RuleStats summarizes the execution log of a rule.
type RuleStats struct {
	TotalExecutions      int        `json:"totalExecutions"`
	SuccessfulExecutions int        `json:"successfulExecutions"`
	FailedExecutions     int        `json:"failedExecutions"`
	LastExecution        *time.Time `json:"lastExecution"`
}

type AutomationLog struct {
	ID            string    `db:"id" json:"id"`
	RuleID        string    `db:"rule_id" json:"ruleId"`
	MemberID      *string   `db:"member_id" json:"memberId"`
	MemberName    *string   `db:"member_name" json:"memberName,omitempty"`
	Status        string    `db:"status" json:"status"`
	Details       *string   `db:"details" json:"details"`
	ExecutionDate time.Time `db:"execution_date" json:"executionDate"`
}

type AutomationFilter struct {
	OrganizationID string
	TriggerType    string
	IsActive       *bool
}

type AutomationUpdate struct {
	Name              *string
	Description       *string
	TriggerConditions *JSONMap
	ActionConfig      *JSONMap
	IsActive          *bool
}

func (u AutomationUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.TriggerConditions == nil &&
		u.ActionConfig == nil && u.IsActive == nil
}

// ExecutionResult reports what a single rule run did.
type ExecutionResult struct {
	RuleID         string    `json:"ruleId"`
	RuleName       string    `json:"ruleName"`
	ReferenceDate  string    `json:"referenceDate"`
	MatchedMembers int       `json:"matchedMembers"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Skipped        bool      `json:"skipped"`
	MessageID      string    `json:"messageId,omitempty"`
	ExecutedAt     time.Time `json:"executedAt"`
}
