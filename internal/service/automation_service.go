package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

type AutomationQuery struct {
	OrganizationID string
	TriggerType    string
	IsActive       *bool
	Page           Page
}

type AutomationInput struct {
	OrganizationID    string        `json:"organizationId"`
	Name              string        `json:"name" validate:"required,max=200"`
	Description       string        `json:"description"`
	TriggerType       string        `json:"triggerType" validate:"required,oneof=birthday anniversary new_member attendance_absence date_based manual"`
	TriggerConditions model.JSONMap `json:"triggerConditions"`
	ActionType        string        `json:"actionType" validate:"required,oneof=send_message create_note assign_task notification"`
	ActionConfig      model.JSONMap `json:"actionConfig"`
	IsActive          *bool         `json:"isActive"`
}

type AutomationPatch struct {
	Name              *string        `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string        `json:"description"`
	TriggerConditions *model.JSONMap `json:"triggerConditions"`
	ActionConfig      *model.JSONMap `json:"actionConfig"`
	IsActive          *bool          `json:"isActive"`
}

// ValidateRule checks that the trigger conditions and action config carry
// what their types need. It returns a 400 AppError or nil.
func ValidateRule(triggerType string, conditions model.JSONMap, actionType string, config model.JSONMap) error {
	if msg := validateTrigger(triggerType, conditions); msg != "" {
		return appErrors.BadRequest(msg)
	}
	if msg := validateAction(actionType, config); msg != "" {
		return appErrors.BadRequest(msg)
	}
	return nil
}

func validateTrigger(triggerType string, c model.JSONMap) string {
	switch triggerType {
	case model.TriggerBirthday:
		if !c.Has("daysBeforeAfter") {
			return "Birthday triggers require daysBeforeAfter configuration"
		}
		return numeric(c, "daysBeforeAfter")
	case model.TriggerAnniversary:
		if !c.Has("anniversaryType") || !c.Has("daysBeforeAfter") {
			return "Anniversary triggers require anniversaryType and daysBeforeAfter configuration"
		}
		return numeric(c, "daysBeforeAfter")
	case model.TriggerNewMember:
		if !c.Has("daysAfterJoining") {
			return "New member triggers require daysAfterJoining configuration"
		}
		return numeric(c, "daysAfterJoining")
	case model.TriggerAttendanceAbsence:
		if !c.Has("absenceDays") {
			return "Attendance absence triggers require absenceDays configuration"
		}
		if n, ok := c.Int("absenceDays"); !ok || n < 1 {
			return "absenceDays must be a positive number"
		}
	case model.TriggerDateBased:
		if !c.Has("targetDate") && !c.Has("recurring") {
			return "Date-based triggers require targetDate or recurring configuration"
		}
		if d := c.String("targetDate"); d != "" {
			if _, err := parseDate("targetDate", d); err != nil {
				return "targetDate must be a date in YYYY-MM-DD format"
			}
		}
		switch c.String("recurring") {
		case "":
		case "weekly":
			return inRange(c, "weekday", 0, 6)
		case "monthly":
			return inRange(c, "dayOfMonth", 1, 31)
		case "yearly":
			if msg := inRange(c, "month", 1, 12); msg != "" {
				return msg
			}
			return inRange(c, "day", 1, 31)
		default:
			return "recurring must be one of: weekly, monthly, yearly"
		}
	}
	return ""
}

func validateAction(actionType string, c model.JSONMap) string {
	switch actionType {
	case model.ActionSendMessage:
		if !c.Has("templateId") && !c.Has("messageContent") {
			return "Send message actions require templateId or messageContent"
		}
		if !c.Has("messageType") {
			return "Send message actions require messageType"
		}
		if !contains(templateTypes, c.String("messageType")) {
			return "messageType must be one of: email, sms, notification"
		}
	case model.ActionCreateNote:
		if !c.Has("noteTitle") || !c.Has("noteContent") {
			return "Create note actions require noteTitle and noteContent"
		}
	case model.ActionAssignTask:
		if !c.Has("taskTitle") || !c.Has("assigneeId") {
			return "Assign task actions require taskTitle and assigneeId"
		}
	case model.ActionNotification:
		if !c.Has("notificationTitle") || !c.Has("notificationMessage") {
			return "Notification actions require notificationTitle and notificationMessage"
		}
	}
	return ""
}

func inRange(c model.JSONMap, key string, lo, hi int) string {
	if n, ok := c.Int(key); !ok || n < lo || n > hi {
		return fmt.Sprintf("%s must be a whole number between %d and %d", key, lo, hi)
	}
	return ""
}

func numeric(c model.JSONMap, key string) string {
	if _, ok := c.Int(key); !ok {
		return key + " must be a number"
	}
	return ""
}

type AutomationService struct {
	Rules     repository.AutomationRepositoryInterface
	Engine    *AutomationEngine
	Validator *validator.Validator
	Log       logrus.FieldLogger
}

func (s *AutomationService) List(ctx context.Context, p auth.Principal, q AutomationQuery) (*List[*model.AutomationRule], error) {
	orgID, err := organization(p, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	rules, total, err := s.Rules.List(ctx, model.AutomationFilter{
		OrganizationID: orgID,
		TriggerType:    q.TriggerType,
		IsActive:       q.IsActive,
	}, q.Page.Offset(), q.Page.Limit)
	if err != nil {
		return nil, err
	}
	return &List[*model.AutomationRule]{Items: rules, Total: total, Page: q.Page}, nil
}

func (s *AutomationService) Get(ctx context.Context, p auth.Principal, id string) (*model.AutomationRule, error) {
	rule, err := s.Rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrganization(p, rule.OrganizationID); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *AutomationService) Create(ctx context.Context, p auth.Principal, in AutomationInput) (*model.AutomationRule, error) {
	if err := requirePermission(p, auth.PermManageAutomation, auth.PermCreateAutomation); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	if in.TriggerConditions == nil {
		in.TriggerConditions = model.JSONMap{}
	}
	if in.ActionConfig == nil {
		in.ActionConfig = model.JSONMap{}
	}
	if err := ValidateRule(in.TriggerType, in.TriggerConditions, in.ActionType, in.ActionConfig); err != nil {
		return nil, err
	}
	orgID, err := organization(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTemplate(ctx, orgID, in.ActionConfig); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	rule := &model.AutomationRule{
		OrganizationID:    orgID,
		Name:              in.Name,
		Description:       stringOrNil(in.Description),
		TriggerType:       in.TriggerType,
		TriggerConditions: in.TriggerConditions,
		ActionType:        in.ActionType,
		ActionConfig:      in.ActionConfig,
		IsActive:          active,
		CreatedBy:         stringOrNil(p.UserID),
	}
	if err := s.Rules.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"rule_id": rule.ID, "trigger": rule.TriggerType}).Info("automation rule created")
	return s.Rules.GetByID(ctx, rule.ID)
}

// Update revalidates the rule when its conditions or config change.
func (s *AutomationService) Update(ctx context.Context, p auth.Principal, id string, in AutomationPatch) (*model.AutomationRule, error) {
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	rule, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.TriggerConditions != nil || in.ActionConfig != nil {
		conditions, config := rule.TriggerConditions, rule.ActionConfig
		if in.TriggerConditions != nil {
			conditions = *in.TriggerConditions
		}
		if in.ActionConfig != nil {
			config = *in.ActionConfig
		}
		if err := ValidateRule(rule.TriggerType, conditions, rule.ActionType, config); err != nil {
			return nil, err
		}
		if err := s.checkTemplate(ctx, rule.OrganizationID, config); err != nil {
			return nil, err
		}
	}

	upd := model.AutomationUpdate{
		Name:              in.Name,
		Description:       in.Description,
		TriggerConditions: in.TriggerConditions,
		ActionConfig:      in.ActionConfig,
		IsActive:          in.IsActive,
	}
	if upd.Empty() {
		return nil, appErrors.BadRequest("No valid fields to update")
	}
	if err := s.Rules.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Rules.GetByID(ctx, id)
}

// checkTemplate rejects a templateId from another organization.
func (s *AutomationService) checkTemplate(ctx context.Context, orgID string, config model.JSONMap) error {
	tid := config.String("templateId")
	if tid == "" {
		return nil
	}
	_, err := s.Engine.orgTemplate(ctx, orgID, tid)
	return err
}

func (s *AutomationService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	return s.Rules.Delete(ctx, id)
}

// Run executes a rule immediately, whatever its trigger type.
func (s *AutomationService) Run(ctx context.Context, p auth.Principal, id string) (*model.ExecutionResult, error) {
	if err := requirePermission(p, auth.PermManageAutomation, auth.PermCreateAutomation); err != nil {
		return nil, err
	}
	rule, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !rule.IsActive {
		return nil, appErrors.BadRequest("Automation rule is not active")
	}
	return s.Engine.Execute(ctx, rule, s.Engine.Now(), true)
}

func (s *AutomationService) Logs(ctx context.Context, p auth.Principal, id string, page Page) (*List[*model.AutomationLog], error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	logs, total, err := s.Rules.ListLogs(ctx, id, page.Offset(), page.Limit)
	if err != nil {
		return nil, err
	}
	return &List[*model.AutomationLog]{Items: logs, Total: total, Page: page}, nil
}

func (s *AutomationService) owned(ctx context.Context, p auth.Principal, id string) (*model.AutomationRule, error) {
	rule, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.CanModifyOwned(rule.CreatedByValue()) {
		return nil, appErrors.Forbidden("You can only modify automation rules you created")
	}
	return rule, nil
}
