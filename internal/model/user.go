// internal/model/user.go
package model

import "time"

type User struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	DisplayName      string     `db:"display_name" json:"displayName"`
	Role             string     `db:"role" json:"role"`
	OrganizationID   *string    `db:"organization_id" json:"organizationId"`
	OrganizationName *string    `db:"organization_name" json:"organizationName,omitempty"`
	IsActive         bool       `db:"is_active" json:"isActive"`
	LastLogin        *time.Time `db:"last_login" json:"lastLogin"`
	Permissions      []string   `db:"-" json:"permissions,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// OrgID returns the organization id or "" when the user has none.
func (u *User) OrgID() string {
	if u.OrganizationID == nil {
		return ""
	}
	return *u.OrganizationID
}

type UserFilter struct {
	OrganizationID string
	Search         string
	Role           string
}

// UserUpdate holds the optional fields of a partial update.
type UserUpdate struct {
	DisplayName    *string
	Role           *string
	IsActive       *bool
	OrganizationID *string
}

func (u UserUpdate) Empty() bool {
	return u.DisplayName == nil && u.Role == nil && u.IsActive == nil && u.OrganizationID == nil
}
