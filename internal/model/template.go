// internal/model/template.go
package model

import "time"

const (
	CategoryWelcome      = "welcome"
	CategoryBirthday     = "birthday"
	CategoryAnniversary  = "anniversary"
	CategoryPrayer       = "prayer"
	CategoryAnnouncement = "announcement"
	CategoryReminder     = "reminder"
	CategoryCare         = "care"
)

type MessageTemplate struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	Name           string     `db:"name" json:"name"`
	Subject        *string    `db:"subject" json:"subject"`
	Content        string     `db:"content" json:"content"`
	TemplateType   string     `db:"template_type" json:"templateType"`
	Category       *string    `db:"category" json:"category"`
	Variables      StringList `db:"variables" json:"variables"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	CreatedBy      *string    `db:"created_by" json:"createdBy"`
	CreatedByName  *string    `db:"created_by_name" json:"createdByName,omitempty"`
	UsageCount     int        `db:"usage_count" json:"usageCount"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

func (t *MessageTemplate) CreatedByValue() string {
	if t.CreatedBy == nil {
		return ""
	}
	return *t.CreatedBy
}

type TemplateFilter struct {
	OrganizationID string
	TemplateType   string
	Category       string
	IsActive       *bool
}

type TemplateUpdate struct {
	Name         *string
	Subject      *string
	Content      *string
	TemplateType *string
	Category     *string
	Variables    *StringList
	IsActive     *bool
}

func (u TemplateUpdate) Empty() bool {
	return u.Name == nil && u.Subject == nil && u.Content == nil && u.TemplateType == nil &&
		u.Category == nil && u.Variables == nil && u.IsActive == nil
}
