// internal/model/message.go
package model

import "time"

const (
	MessageTypeEmail        = "email"
	MessageTypeSMS          = "sms"
	MessageTypeNotification = "notification"

	SendMethodImmediate = "immediate"
	SendMethodScheduled = "scheduled"

	MessageStatusDraft     = "draft"
	MessageStatusScheduled = "scheduled"
	MessageStatusSending   = "sending"
	MessageStatusSent      = "sent"
	MessageStatusFailed    = "failed"

	RecipientStatusPending   = "pending"
	RecipientStatusSent      = "sent"
	RecipientStatusFailed    = "failed"
	RecipientStatusDelivered = "delivered"
)

type Message struct {
	ID               string     `db:"id" json:"id"`
	OrganizationID   string     `db:"organization_id" json:"organizationId"`
	OrganizationName *string    `db:"organization_name" json:"organizationName,omitempty"`
	SenderID         *string    `db:"sender_id" json:"senderId"`
	SenderName       *string    `db:"sender_name" json:"senderName,omitempty"`
	TemplateID       *string    `db:"template_id" json:"templateId"`
	Subject          *string    `db:"subject" json:"subject"`
	Content          string     `db:"content" json:"content"`
	MessageType      string     `db:"message_type" json:"messageType"`
	SendMethod       string     `db:"send_method" json:"sendMethod"`
	ScheduledAt      *time.Time `db:"scheduled_at" json:"scheduledAt"`
	SentAt           *time.Time `db:"sent_at" json:"sentAt"`
	Status           string     `db:"status" json:"status"`
	RecipientCount   int        `db:"recipient_count" json:"recipientCount"`
	SentCount        int        `db:"sent_count" json:"sentCount"`
	FailedCount      int        `db:"failed_count" json:"failedCount"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`

	Recipients []*MessageRecipient `db:"-" json:"recipients,omitempty"`
}

// Locked reports whether the message can no longer be edited or deleted.
func (m *Message) Locked() bool {
	return m.Status == MessageStatusSending || m.Status == MessageStatusSent
}

func (m *Message) SenderIDValue() string {
	if m.SenderID == nil {
		return ""
	}
	return *m.SenderID
}

type MessageRecipient struct {
	ID              string     `db:"id" json:"id"`
	MessageID       string     `db:"message_id" json:"messageId"`
	MemberID        *string    `db:"member_id" json:"memberId"`
	MemberName      *string    `db:"member_name" json:"memberName,omitempty"`
	Email           *string    `db:"email" json:"email"`
	Phone           *string    `db:"phone" json:"phone"`
	Status          string     `db:"status" json:"status"`
	RenderedContent *string    `db:"rendered_content" json:"renderedContent,omitempty"`
	ErrorMessage    *string    `db:"error_message" json:"errorMessage,omitempty"`
	SentAt          *time.Time `db:"sent_at" json:"sentAt"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

type MessageFilter struct {
	OrganizationID string
	Status         string
	MessageType    string
}

type MessageUpdate struct {
	Subject     *string
	Content     *string
	ScheduledAt *time.Time
	Status      *string
}

func (u MessageUpdate) Empty() bool {
	return u.Subject == nil && u.Content == nil && u.ScheduledAt == nil && u.Status == nil
}

// DeliveryJob is the unit of work published for every pending recipient.
type DeliveryJob struct {
	MessageID   string `json:"messageId"`
	RecipientID string `json:"recipientId"`
}
