package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/metrics"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
)

const errNoContact = "No valid contact information"

// DeliveryProcessor consumes delivery jobs: it renders the message for one
// recipient, hands it to the Sender and records the outcome.
type DeliveryProcessor struct {
	Messages repository.MessageRepositoryInterface
	Members  repository.MemberRepositoryInterface
	Orgs     repository.OrganizationRepositoryInterface
	Sender   Sender
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// Handle is the queue handler for delivery jobs.
func (p *DeliveryProcessor) Handle(ctx context.Context, body []byte) error {
	var job model.DeliveryJob
	if err := json.Unmarshal(body, &job); err != nil {
		// Malformed jobs never succeed on retry.
		p.Log.WithError(err).Error("invalid delivery job")
		return nil
	}
	return p.Process(ctx, job)
}

// Process returns an error only for failures worth retrying.
func (p *DeliveryProcessor) Process(ctx context.Context, job model.DeliveryJob) error {
	log := p.Log.WithFields(logrus.Fields{"message_id": job.MessageID, "recipient_id": job.RecipientID})

	rc, err := p.Messages.GetRecipient(ctx, job.RecipientID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			log.Warn("recipient no longer exists")
			return nil
		}
		return err
	}
	if rc.Status != model.RecipientStatusPending {
		return nil
	}

	msg, err := p.Messages.GetByID(ctx, job.MessageID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			log.Warn("message no longer exists")
			return nil
		}
		return err
	}

	to := address(msg.MessageType, rc)
	if to == "" {
		return p.record(ctx, log, msg, rc, model.RecipientStatusFailed, "", errNoContact)
	}

	data, err := p.placeholders(ctx, msg, rc)
	if err != nil {
		return err
	}
	out := Outgoing{
		Channel:     msg.MessageType,
		To:          to,
		Body:        RenderTemplate(msg.Content, data),
		MessageID:   msg.ID,
		RecipientID: rc.ID,
	}
	if msg.Subject != nil {
		out.Subject = RenderTemplate(*msg.Subject, data)
	}

	if err := p.Sender.Send(ctx, out); err != nil {
		return p.record(ctx, log, msg, rc, model.RecipientStatusFailed, out.Body, err.Error())
	}
	return p.record(ctx, log, msg, rc, model.RecipientStatusSent, out.Body, "")
}

// address picks the contact the channel needs. Notifications go to the member
// in-app and always have an address.
func address(channel string, rc *model.MessageRecipient) string {
	switch channel {
	case model.MessageTypeEmail:
		return deref(rc.Email)
	case model.MessageTypeSMS:
		return deref(rc.Phone)
	case model.MessageTypeNotification:
		if id := deref(rc.MemberID); id != "" {
			return id
		}
		return rc.ID
	}
	return ""
}

func (p *DeliveryProcessor) placeholders(ctx context.Context, msg *model.Message, rc *model.MessageRecipient) (map[string]string, error) {
	var orgName string
	if msg.OrganizationName != nil {
		orgName = *msg.OrganizationName
	} else if org, err := p.Orgs.GetByID(ctx, msg.OrganizationID); err == nil {
		orgName = org.Name
	}

	if rc.MemberID == nil {
		return map[string]string{
			"email":             deref(rc.Email),
			"phone":             deref(rc.Phone),
			"organization_name": orgName,
		}, nil
	}
	m, err := p.Members.GetByID(ctx, *rc.MemberID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return map[string]string{"organization_name": orgName}, nil
		}
		return nil, err
	}
	return MemberPlaceholders(m, orgName), nil
}

func (p *DeliveryProcessor) record(ctx context.Context, log logrus.FieldLogger, msg *model.Message, rc *model.MessageRecipient, status, rendered, errMsg string) error {
	if err := p.Messages.UpdateRecipientStatus(ctx, rc.ID, status, rendered, errMsg, p.Now()); err != nil {
		if errors.Is(err, repository.ErrRecipientSettled) {
			log.Debug("recipient already processed by another job")
			return nil
		}
		return err
	}
	metrics.RecordDelivery(msg.MessageType, status)
	if errMsg != "" {
		log.WithField("reason", errMsg).Warn("delivery failed")
	}

	done, err := p.Messages.FinalizeIfComplete(ctx, msg.ID)
	if err != nil {
		return err
	}
	if done {
		log.Info("message delivery complete")
	}
	return nil
}
