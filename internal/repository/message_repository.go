package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/churchcare-backend/internal/db"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type MessageRepositoryInterface interface {
	List(ctx context.Context, f model.MessageFilter, offset, limit int) ([]*model.Message, int, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	Create(ctx context.Context, m *model.Message, recipients []*model.MessageRecipient) error
	Update(ctx context.Context, id string, upd model.MessageUpdate) error
	Delete(ctx context.Context, id string) error
	CountByTemplate(ctx context.Context, templateID string) (int, error)

	// Delivery
	ListRecipients(ctx context.Context, messageID string) ([]*model.MessageRecipient, error)
	GetRecipient(ctx context.Context, id string) (*model.MessageRecipient, error)
	PendingRecipientIDs(ctx context.Context, messageID string) ([]string, error)
	MarkSending(ctx context.Context, id string, at time.Time) error
	UpdateRecipientStatus(ctx context.Context, id, status, rendered, errMsg string, at time.Time) error
	FinalizeIfComplete(ctx context.Context, messageID string) (bool, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]*model.Message, error)
	ListStalledSending(ctx context.Context, before time.Time) ([]*model.Message, error)
	TouchSending(ctx context.Context, id string) error
}

var (
	ErrAlreadySending   = appErrors.Conflict("Message is already being sent")
	ErrRecipientSettled = appErrors.Conflict("Recipient has already been processed")
)

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `m.id, m.organization_id, o.name, m.sender_id, u.display_name, m.template_id,
	m.subject, m.content, m.message_type, m.send_method, m.scheduled_at, m.sent_at, m.status,
	m.recipient_count, m.sent_count, m.failed_count, m.created_at, m.updated_at`

const messageFrom = `FROM messages m
	LEFT JOIN users u ON m.sender_id = u.id
	LEFT JOIN organizations o ON m.organization_id = o.id`

func scanMessage(s rowScanner) (*model.Message, error) {
	var m model.Message
	err := s.Scan(&m.ID, &m.OrganizationID, &m.OrganizationName, &m.SenderID, &m.SenderName, &m.TemplateID,
		&m.Subject, &m.Content, &m.MessageType, &m.SendMethod, &m.ScheduledAt, &m.SentAt, &m.Status,
		&m.RecipientCount, &m.SentCount, &m.FailedCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]*model.Message, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) List(ctx context.Context, f model.MessageFilter, offset, limit int) ([]*model.Message, int, error) {
	w := &where{}
	if f.OrganizationID != "" {
		w.add("m.organization_id = $%[1]d", f.OrganizationID)
	}
	if f.Status != "" {
		w.add("m.status = $%[1]d", f.Status)
	}
	if f.MessageType != "" {
		w.add("m.message_type = $%[1]d", f.MessageType)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages m `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := w.next()
	query := `SELECT ` + messageColumns + ` ` + messageFrom + ` ` + w.String() +
		` ORDER BY m.created_at DESC LIMIT $` + itoa(n) + ` OFFSET $` + itoa(n+1)
	messages, err := r.queryMessages(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	m, err := scanMessage(r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` `+messageFrom+` WHERE m.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Message")
		}
		return nil, err
	}
	return m, nil
}

// Create inserts the message and its recipient rows in one transaction.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message, recipients []*model.MessageRecipient) error {
	if m.ID == "" {
		m.ID = newID()
	}
	m.RecipientCount = len(recipients)

	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (
				id, organization_id, sender_id, template_id, subject, content,
				message_type, send_method, scheduled_at, status, recipient_count
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			m.ID, m.OrganizationID, m.SenderID, m.TemplateID, m.Subject, m.Content,
			m.MessageType, m.SendMethod, m.ScheduledAt, m.Status, m.RecipientCount,
		)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO message_recipients (id, message_id, member_id, email, phone, status)
			VALUES ($1, $2, $3, $4, $5, 'pending')`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rc := range recipients {
			if rc.ID == "" {
				rc.ID = newID()
			}
			rc.MessageID = m.ID
			rc.Status = model.RecipientStatusPending
			if _, err := stmt.ExecContext(ctx, rc.ID, m.ID, rc.MemberID, rc.Email, rc.Phone); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *MessageRepository) Update(ctx context.Context, id string, upd model.MessageUpdate) error {
	s := &setList{}
	if upd.Subject != nil {
		s.add("subject", *upd.Subject)
	}
	if upd.Content != nil {
		s.add("content", *upd.Content)
	}
	if upd.ScheduledAt != nil {
		s.add("scheduled_at", *upd.ScheduledAt)
	}
	if upd.Status != nil {
		s.add("status", *upd.Status)
	}
	if s.empty() {
		return appErrors.BadRequest("No valid fields to update")
	}
	query, args := s.build("messages", id)
	return execAffectingOne(ctx, r.DB, "Message", query, args...)
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "Message", `DELETE FROM messages WHERE id = $1`, id)
}

func (r *MessageRepository) CountByTemplate(ctx context.Context, templateID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE template_id = $1`, templateID).Scan(&n)
	return n, err
}

const recipientColumns = `r.id, r.message_id, r.member_id, m.first_name || ' ' || m.last_name, r.email, r.phone,
	r.status, r.rendered_content, r.error_message, r.sent_at, r.created_at`

func scanRecipient(s rowScanner) (*model.MessageRecipient, error) {
	var rc model.MessageRecipient
	err := s.Scan(&rc.ID, &rc.MessageID, &rc.MemberID, &rc.MemberName, &rc.Email, &rc.Phone,
		&rc.Status, &rc.RenderedContent, &rc.ErrorMessage, &rc.SentAt, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *MessageRepository) ListRecipients(ctx context.Context, messageID string) ([]*model.MessageRecipient, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+recipientColumns+`
		FROM message_recipients r
		LEFT JOIN members m ON r.member_id = m.id
		WHERE r.message_id = $1
		ORDER BY m.first_name, m.last_name`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []*model.MessageRecipient{}
	for rows.Next() {
		rc, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, rc)
	}
	return recipients, rows.Err()
}

func (r *MessageRepository) GetRecipient(ctx context.Context, id string) (*model.MessageRecipient, error) {
	rc, err := scanRecipient(r.DB.QueryRowContext(ctx, `
		SELECT `+recipientColumns+`
		FROM message_recipients r
		LEFT JOIN members m ON r.member_id = m.id
		WHERE r.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Recipient")
		}
		return nil, err
	}
	return rc, nil
}

func (r *MessageRepository) PendingRecipientIDs(ctx context.Context, messageID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id FROM message_recipients WHERE message_id = $1 AND status = 'pending' ORDER BY created_at`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkSending moves a draft or scheduled message to sending. Only one caller
// wins; the others get ErrAlreadySending.
func (r *MessageRepository) MarkSending(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE messages SET status = 'sending', sent_at = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('draft', 'scheduled')`, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return appErrors.NotFound("Message")
	}
	return ErrAlreadySending
}

// UpdateRecipientStatus records the outcome of one delivery attempt on a
// pending recipient and marks the message as having progressed. A recipient
// that is no longer pending yields ErrRecipientSettled.
func (r *MessageRepository) UpdateRecipientStatus(ctx context.Context, id, status, rendered, errMsg string, at time.Time) error {
	var sentAt *time.Time
	if status == model.RecipientStatusSent || status == model.RecipientStatusDelivered {
		sentAt = &at
	}
	res, err := r.DB.ExecContext(ctx, `
		WITH rc AS (
			UPDATE message_recipients
			SET status = $1, rendered_content = NULLIF($2, ''), error_message = NULLIF($3, ''), sent_at = $4
			WHERE id = $5 AND status = 'pending'
			RETURNING message_id
		)
		UPDATE messages SET updated_at = NOW() WHERE id IN (SELECT message_id FROM rc)`,
		status, rendered, errMsg, sentAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecipientSettled
	}
	return nil
}

// ListStalledSending returns messages still sending with pending recipients
// and no recorded progress since before.
func (r *MessageRepository) ListStalledSending(ctx context.Context, before time.Time) ([]*model.Message, error) {
	return r.queryMessages(ctx, `SELECT `+messageColumns+` `+messageFrom+`
		WHERE m.status = 'sending' AND m.updated_at <= $1
		AND EXISTS (SELECT 1 FROM message_recipients rc WHERE rc.message_id = m.id AND rc.status = 'pending')
		ORDER BY m.updated_at`, before)
}

// TouchSending records progress on a sending message.
func (r *MessageRepository) TouchSending(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "Message",
		`UPDATE messages SET updated_at = NOW() WHERE id = $1 AND status = 'sending'`, id)
}

// FinalizeIfComplete marks the message sent with final counters once no
// recipient is pending. It reports whether the message was finalized.
func (r *MessageRepository) FinalizeIfComplete(ctx context.Context, messageID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE messages m
		SET status = 'sent',
		    sent_count = c.sent,
		    failed_count = c.failed,
		    updated_at = NOW()
		FROM (
			SELECT
				COUNT(*) FILTER (WHERE status IN ('sent', 'delivered')) AS sent,
				COUNT(*) FILTER (WHERE status = 'failed') AS failed,
				COUNT(*) FILTER (WHERE status = 'pending') AS pending
			FROM message_recipients
			WHERE message_id = $1
		) c
		WHERE m.id = $1 AND m.status = 'sending' AND c.pending = 0`, messageID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MessageRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*model.Message, error) {
	return r.queryMessages(ctx, `SELECT `+messageColumns+` `+messageFrom+`
		WHERE m.status = 'scheduled' AND m.scheduled_at <= $1
		ORDER BY m.scheduled_at`, now)
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
