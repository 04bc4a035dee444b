package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/metrics"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
)

// Dispatcher starts delivery of a stored message.
type Dispatcher interface {
	Dispatch(ctx context.Context, messageID string) error
}

// AutomationEngine evaluates rules against members and performs their actions.
type AutomationEngine struct {
	Rules      repository.AutomationRepositoryInterface
	Members    repository.MemberRepositoryInterface
	Templates  repository.TemplateRepositoryInterface
	Messages   repository.MessageRepositoryInterface
	Dispatcher Dispatcher
	Log        logrus.FieldLogger
	Now        func() time.Time
}

// RunAll executes every active, non-manual rule for the current date.
func (e *AutomationEngine) RunAll(ctx context.Context) ([]*model.ExecutionResult, error) {
	rules, err := e.Rules.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ref := e.Now()
	results := make([]*model.ExecutionResult, 0, len(rules))
	for _, rule := range rules {
		if rule.TriggerType == model.TriggerManual {
			continue
		}
		res, err := e.Execute(ctx, rule, ref, false)
		if err != nil {
			e.Log.WithError(err).WithField("rule_id", rule.ID).Error("automation rule failed")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// Match returns the active members a rule selects on the reference date.
// Manual rules match everyone, but only when run on demand.
func (e *AutomationEngine) Match(ctx context.Context, rule *model.AutomationRule, ref time.Time, manual bool) ([]*model.Member, error) {
	c := rule.TriggerConditions
	org := rule.OrganizationID
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	switch rule.TriggerType {
	case model.TriggerBirthday:
		offset, _ := c.Int("daysBeforeAfter")
		target := day.AddDate(0, 0, offset)
		return e.Members.FindByBirthday(ctx, org, target.Month(), target.Day())
	case model.TriggerAnniversary:
		if c.String("anniversaryType") != "membership" {
			return nil, nil
		}
		offset, _ := c.Int("daysBeforeAfter")
		target := day.AddDate(0, 0, offset)
		return e.Members.FindByAnniversary(ctx, org, target.Month(), target.Day(), target.Year())
	case model.TriggerNewMember:
		after, _ := c.Int("daysAfterJoining")
		return e.Members.FindJoinedOn(ctx, org, day.AddDate(0, 0, -after))
	case model.TriggerAttendanceAbsence:
		days, _ := c.Int("absenceDays")
		return e.Members.FindAbsentSince(ctx, org, day.AddDate(0, 0, -days))
	case model.TriggerDateBased:
		if !dateBasedDue(c, day) {
			return nil, nil
		}
		return e.Members.ListActive(ctx, org)
	case model.TriggerManual:
		if !manual {
			return nil, nil
		}
		return e.Members.ListActive(ctx, org)
	}
	return nil, fmt.Errorf("unknown trigger type %q", rule.TriggerType)
}

// dateBasedDue reports whether a date_based rule fires on day. weekday uses
// 0 for Sunday.
func dateBasedDue(c model.JSONMap, day time.Time) bool {
	if target := c.String("targetDate"); target != "" {
		return target == day.Format(dateLayout)
	}
	switch c.String("recurring") {
	case "weekly":
		wd, ok := c.Int("weekday")
		return ok && time.Weekday(wd) == day.Weekday()
	case "monthly":
		dom, ok := c.Int("dayOfMonth")
		return ok && dom == day.Day()
	case "yearly":
		month, okM := c.Int("month")
		dom, okD := c.Int("day")
		return okM && okD && time.Month(month) == day.Month() && dom == day.Day()
	}
	return false
}

// Execute matches members, performs the action and writes the execution log:
// one row per member, or a single skipped row when nothing matched.
func (e *AutomationEngine) Execute(ctx context.Context, rule *model.AutomationRule, ref time.Time, manual bool) (*model.ExecutionResult, error) {
	start := time.Now()
	log := e.Log.WithFields(logrus.Fields{"rule_id": rule.ID, "trigger": rule.TriggerType, "action": rule.ActionType})

	members, err := e.Match(ctx, rule, ref, manual)
	if err != nil {
		metrics.RecordAutomationRun(rule.TriggerType, "error", time.Since(start))
		return nil, err
	}

	executedAt := e.Now()
	res := &model.ExecutionResult{
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		ReferenceDate:  ref.Format(dateLayout),
		MatchedMembers: len(members),
		ExecutedAt:     executedAt,
	}

	var logs []*model.AutomationLog
	if len(members) == 0 {
		res.Skipped = true
		logs = append(logs, &model.AutomationLog{
			RuleID:        rule.ID,
			Status:        model.LogStatusSkipped,
			Details:       stringOrNil("No matching members"),
			ExecutionDate: executedAt,
		})
	} else {
		outcomes, messageID := e.perform(ctx, rule, members, executedAt)
		res.MessageID = messageID
		for i, m := range members {
			id := m.ID
			o := outcomes[i]
			if o.err != nil {
				res.Failed++
				logs = append(logs, &model.AutomationLog{RuleID: rule.ID, MemberID: &id, Status: model.LogStatusFailed,
					Details: stringOrNil(o.err.Error()), ExecutionDate: executedAt})
				continue
			}
			res.Succeeded++
			logs = append(logs, &model.AutomationLog{RuleID: rule.ID, MemberID: &id, Status: model.LogStatusSuccess,
				Details: stringOrNil(o.details), ExecutionDate: executedAt})
		}
	}

	if err := e.Rules.CreateLogs(ctx, logs); err != nil {
		return nil, err
	}

	outcome := "success"
	switch {
	case res.Skipped:
		outcome = "skipped"
	case res.Succeeded == 0:
		outcome = "failed"
	case res.Failed > 0:
		outcome = "partial"
	}
	metrics.RecordAutomationRun(rule.TriggerType, outcome, time.Since(start))
	log.WithFields(logrus.Fields{
		"matched":   res.MatchedMembers,
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
		"outcome":   outcome,
	}).Info("automation rule executed")
	return res, nil
}

type outcome struct {
	details string
	err     error
}

func (e *AutomationEngine) perform(ctx context.Context, rule *model.AutomationRule, members []*model.Member, at time.Time) ([]outcome, string) {
	out := make([]outcome, len(members))
	fail := func(err error) []outcome {
		for i := range out {
			out[i] = outcome{err: err}
		}
		return out
	}
	cfg := rule.ActionConfig

	switch rule.ActionType {
	case model.ActionSendMessage, model.ActionNotification:
		id, err := e.sendMessage(ctx, rule, members)
		if err != nil {
			return fail(err), ""
		}
		for i := range out {
			out[i] = outcome{details: "Message " + id + " queued"}
		}
		return out, id
	case model.ActionCreateNote:
		for i, m := range members {
			data := MemberPlaceholders(m, "")
			note := fmt.Sprintf("[%s] %s: %s", at.Format(dateLayout),
				RenderTemplate(cfg.String("noteTitle"), data), RenderTemplate(cfg.String("noteContent"), data))
			if err := e.Members.AppendNote(ctx, m.ID, note); err != nil {
				out[i] = outcome{err: err}
				continue
			}
			out[i] = outcome{details: "Note added"}
		}
		return out, ""
	case model.ActionAssignTask:
		details := fmt.Sprintf("Task %q assigned to %s", cfg.String("taskTitle"), cfg.String("assigneeId"))
		for i := range out {
			out[i] = outcome{details: details}
		}
		return out, ""
	}
	return fail(fmt.Errorf("unknown action type %q", rule.ActionType)), ""
}

// sendMessage creates one message addressed to every matched member and
// dispatches it. The rule's creator is recorded as the sender.
func (e *AutomationEngine) sendMessage(ctx context.Context, rule *model.AutomationRule, members []*model.Member) (string, error) {
	cfg := rule.ActionConfig
	msg := &model.Message{
		OrganizationID: rule.OrganizationID,
		SenderID:       rule.CreatedBy,
		SendMethod:     model.SendMethodImmediate,
		Status:         model.MessageStatusDraft,
	}

	if rule.ActionType == model.ActionNotification {
		msg.MessageType = model.MessageTypeNotification
		msg.Subject = stringOrNil(cfg.String("notificationTitle"))
		msg.Content = cfg.String("notificationMessage")
	} else {
		msg.MessageType = cfg.String("messageType")
		msg.Subject = stringOrNil(cfg.String("subject"))
		msg.Content = cfg.String("messageContent")
		if tid := cfg.String("templateId"); tid != "" {
			t, err := e.orgTemplate(ctx, rule.OrganizationID, tid)
			if err != nil {
				return "", err
			}
			msg.TemplateID = &t.ID
			if strings.TrimSpace(msg.Content) == "" {
				msg.Content = t.Content
			}
			if msg.Subject == nil {
				msg.Subject = t.Subject
			}
		}
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("rule has no message content")
	}

	recipients := make([]*model.MessageRecipient, 0, len(members))
	for _, m := range members {
		id := m.ID
		recipients = append(recipients, &model.MessageRecipient{MemberID: &id, Email: m.Email, Phone: m.Phone})
	}
	if err := e.Messages.Create(ctx, msg, recipients); err != nil {
		return "", err
	}
	if err := e.Dispatcher.Dispatch(ctx, msg.ID); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// orgTemplate loads a template only when it belongs to orgID.
func (e *AutomationEngine) orgTemplate(ctx context.Context, orgID, id string) (*model.MessageTemplate, error) {
	t, err := e.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OrganizationID != orgID {
		return nil, appErrors.BadRequest("Template does not belong to this organization")
	}
	return t, nil
}
