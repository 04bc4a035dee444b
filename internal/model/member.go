// internal/model/member.go
package model

import "time"

const (
	MemberStatusActive      = "active"
	MemberStatusInactive    = "inactive"
	MemberStatusDeceased    = "deceased"
	MemberStatusTransferred = "transferred"

	MemberTypeRegular    = "regular"
	MemberTypeVisitor    = "visitor"
	MemberTypeNewConvert = "new_convert"
	MemberTypeLeader     = "leader"
)

type Member struct {
	ID                    string     `db:"id" json:"id"`
	OrganizationID        string     `db:"organization_id" json:"organizationId"`
	OrganizationName      *string    `db:"organization_name" json:"organizationName,omitempty"`
	FirstName             string     `db:"first_name" json:"firstName"`
	LastName              string     `db:"last_name" json:"lastName"`
	Email                 *string    `db:"email" json:"email"`
	Phone                 *string    `db:"phone" json:"phone"`
	Address               *string    `db:"address" json:"address"`
	DateOfBirth           *time.Time `db:"date_of_birth" json:"dateOfBirth"`
	Gender                *string    `db:"gender" json:"gender"`
	MaritalStatus         *string    `db:"marital_status" json:"maritalStatus"`
	MemberSince           *time.Time `db:"member_since" json:"memberSince"`
	MemberType            string     `db:"member_type" json:"memberType"`
	Status                string     `db:"status" json:"status"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergencyContactName"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergencyContactPhone"`
	Notes                 *string    `db:"notes" json:"notes"`
	Tags                  StringList `db:"tags" json:"tags"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

type MemberFilter struct {
	OrganizationID string
	Search         string
	Status         string
	MemberType     string
	Gender         string
}

// MemberUpdate holds the optional fields of a partial update. Nil means unchanged.
type MemberUpdate struct {
	FirstName             *string
	LastName              *string
	Email                 *string
	Phone                 *string
	Address               *string
	DateOfBirth           *time.Time
	Gender                *string
	MaritalStatus         *string
	MemberSince           *time.Time
	MemberType            *string
	Status                *string
	EmergencyContactName  *string
	EmergencyContactPhone *string
	Notes                 *string
	Tags                  *StringList
}
