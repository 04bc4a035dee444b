package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

type MemberQuery struct {
	OrganizationID string
	Search         string
	Status         string
	MemberType     string
	Gender         string
	Page           Page
}

type MemberInput struct {
	OrganizationID        string   `json:"organizationId"`
	FirstName             string   `json:"firstName" validate:"required,max=100"`
	LastName              string   `json:"lastName" validate:"required,max=100"`
	Email                 string   `json:"email" validate:"omitempty,email"`
	Phone                 string   `json:"phone" validate:"omitempty,phone"`
	Address               string   `json:"address" validate:"max=500"`
	DateOfBirth           string   `json:"dateOfBirth" validate:"omitempty,dateformat"`
	Gender                string   `json:"gender" validate:"omitempty,oneof=male female other"`
	MaritalStatus         string   `json:"maritalStatus" validate:"omitempty,oneof=single married divorced widowed"`
	MemberSince           string   `json:"memberSince" validate:"omitempty,dateformat"`
	MemberType            string   `json:"memberType" validate:"omitempty,oneof=regular visitor new_convert leader"`
	EmergencyContactName  string   `json:"emergencyContactName" validate:"max=100"`
	EmergencyContactPhone string   `json:"emergencyContactPhone" validate:"omitempty,phone"`
	Notes                 string   `json:"notes"`
	Tags                  []string `json:"tags"`
}

type MemberPatch struct {
	FirstName             *string   `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName              *string   `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email                 *string   `json:"email" validate:"omitempty,email"`
	Phone                 *string   `json:"phone" validate:"omitempty,phone"`
	Address               *string   `json:"address" validate:"omitempty,max=500"`
	DateOfBirth           *string   `json:"dateOfBirth" validate:"omitempty,dateformat"`
	Gender                *string   `json:"gender" validate:"omitempty,oneof=male female other"`
	MaritalStatus         *string   `json:"maritalStatus" validate:"omitempty,oneof=single married divorced widowed"`
	MemberSince           *string   `json:"memberSince" validate:"omitempty,dateformat"`
	MemberType            *string   `json:"memberType" validate:"omitempty,oneof=regular visitor new_convert leader"`
	Status                *string   `json:"status" validate:"omitempty,oneof=active inactive deceased transferred"`
	EmergencyContactName  *string   `json:"emergencyContactName" validate:"omitempty,max=100"`
	EmergencyContactPhone *string   `json:"emergencyContactPhone" validate:"omitempty,phone"`
	Notes                 *string   `json:"notes"`
	Tags                  *[]string `json:"tags"`
}

type MemberService struct {
	Members   repository.MemberRepositoryInterface
	Validator *validator.Validator
	Log       logrus.FieldLogger
	Now       func() time.Time
}

func (s *MemberService) List(ctx context.Context, p auth.Principal, q MemberQuery) (*List[*model.Member], error) {
	if err := requirePermission(p, auth.PermViewMembers, auth.PermManageMembers); err != nil {
		return nil, err
	}
	orgID, err := organization(p, q.OrganizationID)
	if err != nil {
		return nil, err
	}

	members, total, err := s.Members.List(ctx, model.MemberFilter{
		OrganizationID: orgID,
		Search:         strings.TrimSpace(q.Search),
		Status:         q.Status,
		MemberType:     q.MemberType,
		Gender:         q.Gender,
	}, q.Page.Offset(), q.Page.Limit)
	if err != nil {
		return nil, err
	}
	return &List[*model.Member]{Items: members, Total: total, Page: q.Page}, nil
}

func (s *MemberService) Get(ctx context.Context, p auth.Principal, id string) (*model.Member, error) {
	if err := requirePermission(p, auth.PermViewMembers, auth.PermManageMembers); err != nil {
		return nil, err
	}
	m, err := s.Members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrganization(p, m.OrganizationID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MemberService) Create(ctx context.Context, p auth.Principal, in MemberInput) (*model.Member, error) {
	if err := requirePermission(p, auth.PermManageMembers); err != nil {
		return nil, err
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	orgID, err := organization(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDuplicates(ctx, orgID, in.Email, in.Phone, ""); err != nil {
		return nil, err
	}

	dob, err := parseDate("dateOfBirth", in.DateOfBirth)
	if err != nil {
		return nil, err
	}
	since, err := parseDate("memberSince", in.MemberSince)
	if err != nil {
		return nil, err
	}
	if since == nil {
		today := s.Now().UTC().Truncate(24 * time.Hour)
		since = &today
	}
	memberType := in.MemberType
	if memberType == "" {
		memberType = model.MemberTypeRegular
	}
	tags := model.StringList(in.Tags)
	if tags == nil {
		tags = model.StringList{}
	}

	m := &model.Member{
		OrganizationID:        orgID,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Email:                 stringOrNil(in.Email),
		Phone:                 stringOrNil(in.Phone),
		Address:               stringOrNil(in.Address),
		DateOfBirth:           dob,
		Gender:                stringOrNil(in.Gender),
		MaritalStatus:         stringOrNil(in.MaritalStatus),
		MemberSince:           since,
		MemberType:            memberType,
		Status:                model.MemberStatusActive,
		EmergencyContactName:  stringOrNil(in.EmergencyContactName),
		EmergencyContactPhone: stringOrNil(in.EmergencyContactPhone),
		Notes:                 stringOrNil(in.Notes),
		Tags:                  tags,
	}
	if err := s.Members.Create(ctx, m); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"member_id": m.ID, "organization_id": orgID}).Info("member created")
	return s.Members.GetByID(ctx, m.ID)
}

func (s *MemberService) Update(ctx context.Context, p auth.Principal, id string, in MemberPatch) (*model.Member, error) {
	if err := requirePermission(p, auth.PermManageMembers); err != nil {
		return nil, err
	}
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	existing, err := s.Members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrganization(p, existing.OrganizationID); err != nil {
		return nil, err
	}

	var email, phone string
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &email
	}
	if in.Phone != nil {
		phone = strings.TrimSpace(*in.Phone)
		in.Phone = &phone
	}
	if err := s.checkDuplicates(ctx, existing.OrganizationID, email, phone, id); err != nil {
		return nil, err
	}

	upd := model.MemberUpdate{
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Email:                 in.Email,
		Phone:                 in.Phone,
		Address:               in.Address,
		Gender:                in.Gender,
		MaritalStatus:         in.MaritalStatus,
		MemberType:            in.MemberType,
		Status:                in.Status,
		EmergencyContactName:  in.EmergencyContactName,
		EmergencyContactPhone: in.EmergencyContactPhone,
		Notes:                 in.Notes,
	}
	if in.DateOfBirth != nil {
		if upd.DateOfBirth, err = parseDate("dateOfBirth", *in.DateOfBirth); err != nil {
			return nil, err
		}
	}
	if in.MemberSince != nil {
		if upd.MemberSince, err = parseDate("memberSince", *in.MemberSince); err != nil {
			return nil, err
		}
	}
	if in.Tags != nil {
		tags := model.StringList(*in.Tags)
		upd.Tags = &tags
	}
	if err := s.Members.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Members.GetByID(ctx, id)
}

// Delete additionally requires an admin role.
func (s *MemberService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if err := requirePermission(p, auth.PermManageMembers); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return appErrors.Forbidden("Only admins can delete members")
	}
	existing, err := s.Members.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkOrganization(p, existing.OrganizationID); err != nil {
		return err
	}
	if err := s.Members.Delete(ctx, id); err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{"member_id": id, "deleted_by": p.UserID}).Info("member deleted")
	return nil
}

func (s *MemberService) checkDuplicates(ctx context.Context, orgID, email, phone, excludeID string) error {
	if email != "" {
		exists, err := s.Members.ExistsByEmail(ctx, orgID, email, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.Conflict("Member with this email already exists")
		}
	}
	if phone != "" {
		exists, err := s.Members.ExistsByPhone(ctx, orgID, phone, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.Conflict("Member with this phone number already exists")
		}
	}
	return nil
}
