package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/queue"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

// Recipients is either the literal "all" or a list of member IDs. An empty
// selection also means all active members.
type Recipients struct {
	All       bool
	MemberIDs []string
}

func (r *Recipients) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = Recipients{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != "all" {
			return fmt.Errorf(`recipients must be "all" or a list of member IDs`)
		}
		*r = Recipients{All: true}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf(`recipients must be "all" or a list of member IDs`)
	}
	*r = Recipients{MemberIDs: ids}
	return nil
}

func (r Recipients) all() bool {
	return r.All || len(r.MemberIDs) == 0
}

type MessageQuery struct {
	OrganizationID string
	Status         string
	MessageType    string
	Page           Page
}

type MessageInput struct {
	OrganizationID string     `json:"organizationId"`
	TemplateID     string     `json:"templateId"`
	Subject        string     `json:"subject" validate:"max=500"`
	Content        string     `json:"content"`
	MessageType    string     `json:"messageType" validate:"omitempty,oneof=email sms notification"`
	SendMethod     string     `json:"sendMethod" validate:"omitempty,oneof=immediate scheduled"`
	ScheduledAt    *time.Time `json:"scheduledAt"`
	Recipients     Recipients `json:"recipients"`
}

type MessagePatch struct {
	Subject     *string    `json:"subject"`
	Content     *string    `json:"content" validate:"omitempty,min=1"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	Status      *string    `json:"status" validate:"omitempty,oneof=draft scheduled"`
}

type MessageService struct {
	Messages  repository.MessageRepositoryInterface
	Members   repository.MemberRepositoryInterface
	Templates repository.TemplateRepositoryInterface
	Queue     queue.Queue
	Topic     string
	Validator *validator.Validator
	Log       logrus.FieldLogger
	Now       func() time.Time
}

func (s *MessageService) List(ctx context.Context, p auth.Principal, q MessageQuery) (*List[*model.Message], error) {
	orgID, err := organization(p, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	messages, total, err := s.Messages.List(ctx, model.MessageFilter{
		OrganizationID: orgID,
		Status:         q.Status,
		MessageType:    q.MessageType,
	}, q.Page.Offset(), q.Page.Limit)
	if err != nil {
		return nil, err
	}
	return &List[*model.Message]{Items: messages, Total: total, Page: q.Page}, nil
}

// Get returns the message with its recipients.
func (s *MessageService) Get(ctx context.Context, p auth.Principal, id string) (*model.Message, error) {
	m, err := s.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrganization(p, m.OrganizationID); err != nil {
		return nil, err
	}
	if m.Recipients, err = s.Messages.ListRecipients(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MessageService) Recipients(ctx context.Context, p auth.Principal, id string) ([]*model.MessageRecipient, error) {
	m, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return m.Recipients, nil
}

func (s *MessageService) Create(ctx context.Context, p auth.Principal, in MessageInput) (*model.Message, error) {
	if err := requirePermission(p, auth.PermSendMessages); err != nil {
		return nil, err
	}
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	orgID, err := organization(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		OrganizationID: orgID,
		SenderID:       stringOrNil(p.UserID),
		Subject:        stringOrNil(in.Subject),
		Content:        in.Content,
		MessageType:    in.MessageType,
		SendMethod:     in.SendMethod,
		ScheduledAt:    in.ScheduledAt,
	}
	if in.TemplateID != "" {
		if err := s.applyTemplate(ctx, msg, in.TemplateID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(msg.Content) == "" || msg.MessageType == "" {
		return nil, appErrors.BadRequest("Content and message type are required")
	}
	if msg.SendMethod == "" {
		msg.SendMethod = model.SendMethodImmediate
	}
	msg.Status = model.MessageStatusDraft
	if msg.SendMethod == model.SendMethodScheduled {
		if msg.ScheduledAt == nil {
			return nil, appErrors.BadRequest("Scheduled date is required for scheduled messages")
		}
		msg.Status = model.MessageStatusScheduled
	}

	members, err := s.selectRecipients(ctx, orgID, in.Recipients)
	if err != nil {
		return nil, err
	}
	recipients := make([]*model.MessageRecipient, 0, len(members))
	for _, m := range members {
		id := m.ID
		recipients = append(recipients, &model.MessageRecipient{MemberID: &id, Email: m.Email, Phone: m.Phone})
	}

	if err := s.Messages.Create(ctx, msg, recipients); err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"recipients": len(recipients),
		"method":     msg.SendMethod,
	}).Info("message created")

	if msg.SendMethod == model.SendMethodImmediate {
		if err := s.Dispatch(ctx, msg.ID); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, p, msg.ID)
}

// applyTemplate fills content, subject and type from the template where the
// request left them empty.
func (s *MessageService) applyTemplate(ctx context.Context, msg *model.Message, templateID string) error {
	t, err := s.Templates.GetByID(ctx, templateID)
	if err != nil {
		return err
	}
	if t.OrganizationID != msg.OrganizationID {
		return appErrors.BadRequest("Template does not belong to this organization")
	}
	msg.TemplateID = &t.ID
	if strings.TrimSpace(msg.Content) == "" {
		msg.Content = t.Content
	}
	if msg.Subject == nil {
		msg.Subject = t.Subject
	}
	if msg.MessageType == "" {
		msg.MessageType = t.TemplateType
	}
	return nil
}

func (s *MessageService) selectRecipients(ctx context.Context, orgID string, r Recipients) ([]*model.Member, error) {
	var (
		members []*model.Member
		err     error
	)
	if r.all() {
		members, err = s.Members.ListActive(ctx, orgID)
	} else {
		members, err = s.Members.ListActiveByIDs(ctx, orgID, r.MemberIDs)
	}
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, appErrors.BadRequest("No valid recipients found")
	}
	return members, nil
}

func (s *MessageService) Update(ctx context.Context, p auth.Principal, id string, in MessagePatch) (*model.Message, error) {
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	m, err := s.editable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && *in.Status == model.MessageStatusScheduled && in.ScheduledAt == nil && m.ScheduledAt == nil {
		return nil, appErrors.BadRequest("Scheduled date is required for scheduled messages")
	}

	upd := model.MessageUpdate{Subject: in.Subject, Content: in.Content, ScheduledAt: in.ScheduledAt, Status: in.Status}
	if upd.Empty() {
		return nil, appErrors.BadRequest("No valid fields to update")
	}
	if err := s.Messages.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}

func (s *MessageService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if _, err := s.editable(ctx, p, id); err != nil {
		return err
	}
	return s.Messages.Delete(ctx, id)
}

// Send dispatches a draft or scheduled message now.
func (s *MessageService) Send(ctx context.Context, p auth.Principal, id string) (*model.Message, error) {
	if err := requirePermission(p, auth.PermSendMessages); err != nil {
		return nil, err
	}
	if _, err := s.editable(ctx, p, id); err != nil {
		return nil, err
	}
	if err := s.Dispatch(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}

// editable loads a message the caller may change: sender or admin, and not
// yet sending or sent.
func (s *MessageService) editable(ctx context.Context, p auth.Principal, id string) (*model.Message, error) {
	m, err := s.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrganization(p, m.OrganizationID); err != nil {
		return nil, err
	}
	if !p.CanModifyOwned(m.SenderIDValue()) {
		return nil, appErrors.Forbidden("You can only modify messages you sent")
	}
	if m.Locked() {
		return nil, appErrors.BadRequest("Cannot modify a message that is being sent or has been sent")
	}
	return m, nil
}

// stalledAfter is how long a sending message may go without delivery
// progress before its pending recipients are enqueued again.
const stalledAfter = 15 * time.Minute

// Dispatch marks the message sending and enqueues one job per pending
// recipient. A message already sending yields repository.ErrAlreadySending.
func (s *MessageService) Dispatch(ctx context.Context, id string) error {
	if err := s.Messages.MarkSending(ctx, id, s.Now()); err != nil {
		return err
	}
	return s.enqueuePending(ctx, id)
}

func (s *MessageService) enqueuePending(ctx context.Context, id string) error {
	ids, err := s.Messages.PendingRecipientIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		_, err := s.Messages.FinalizeIfComplete(ctx, id)
		return err
	}

	for _, rid := range ids {
		if err := s.Queue.Publish(ctx, s.Topic, model.DeliveryJob{MessageID: id, RecipientID: rid}); err != nil {
			return fmt.Errorf("enqueue delivery %s: %w", rid, err)
		}
	}
	s.Log.WithFields(logrus.Fields{"message_id": id, "jobs": len(ids)}).Info("message dispatched")
	return nil
}

// DispatchDue sends every scheduled message whose time has come and
// re-enqueues messages stuck in sending. It returns how many messages were
// enqueued.
func (s *MessageService) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.Messages.ListDueScheduled(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, m := range due {
		if err := s.Dispatch(ctx, m.ID); err != nil {
			if !errors.Is(err, repository.ErrAlreadySending) {
				s.Log.WithError(err).WithField("message_id", m.ID).Error("scheduled dispatch failed")
			}
			continue
		}
		sent++
	}

	stalled, err := s.Messages.ListStalledSending(ctx, s.Now().Add(-stalledAfter))
	if err != nil {
		return sent, err
	}
	for _, m := range stalled {
		log := s.Log.WithField("message_id", m.ID)
		if err := s.Messages.TouchSending(ctx, m.ID); err != nil {
			log.WithError(err).Error("stalled message not resumed")
			continue
		}
		if err := s.enqueuePending(ctx, m.ID); err != nil {
			log.WithError(err).Error("stalled message not resumed")
			continue
		}
		log.Warn("stalled message re-enqueued")
		sent++
	}
	return sent, nil
}
