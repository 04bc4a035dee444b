package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

type UserQuery struct {
	OrganizationID string
	Search         string
	Role           string
	Page           Page
}

type CreateUserInput struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	DisplayName    string `json:"displayName" validate:"required,max=100"`
	Role           string `json:"role" validate:"omitempty,oneof=super_admin admin ministry_leader volunteer member"`
	OrganizationID string `json:"organizationId"`
}

type UpdateUserInput struct {
	DisplayName    *string `json:"displayName" validate:"omitempty,min=1,max=100"`
	Role           *string `json:"role" validate:"omitempty,oneof=super_admin admin ministry_leader volunteer member"`
	IsActive       *bool   `json:"isActive"`
	OrganizationID *string `json:"organizationId"`
}

type UserService struct {
	Users     repository.UserRepositoryInterface
	Passwords *auth.PasswordHasher
	Validator *validator.Validator
	Log       logrus.FieldLogger
}

func (s *UserService) List(ctx context.Context, p auth.Principal, q UserQuery) (*List[*model.User], error) {
	if err := requirePermission(p, auth.PermManageUsers); err != nil {
		return nil, err
	}

	f := model.UserFilter{Search: q.Search, Role: q.Role}
	if p.Role == auth.RoleSuperAdmin {
		f.OrganizationID = q.OrganizationID
	} else {
		f.OrganizationID = p.TargetOrganization(q.OrganizationID)
	}

	users, total, err := s.Users.List(ctx, f, q.Page.Offset(), q.Page.Limit)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.Permissions = auth.RolePermissions(u.Role)
	}
	return &List[*model.User]{Items: users, Total: total, Page: q.Page}, nil
}

// Get allows a user to read themselves, and user managers to read anyone in
// an organization they can access.
func (s *UserService) Get(ctx context.Context, p auth.Principal, id string) (*model.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.ID != p.UserID {
		if err := requirePermission(p, auth.PermManageUsers); err != nil {
			return nil, err
		}
		if err := checkOrganization(p, u.OrgID()); err != nil {
			return nil, err
		}
	}
	u.Permissions = auth.RolePermissions(u.Role)
	return u, nil
}

func (s *UserService) Create(ctx context.Context, p auth.Principal, in CreateUserInput) (*model.User, error) {
	if err := requirePermission(p, auth.PermManageUsers); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = auth.RoleMember
	}
	if in.Role == auth.RoleSuperAdmin && p.Role != auth.RoleSuperAdmin {
		return nil, appErrors.Forbidden("Only super admins can create super admins")
	}

	orgID := p.TargetOrganization(in.OrganizationID)
	hash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:          in.Email,
		PasswordHash:   hash,
		DisplayName:    strings.TrimSpace(in.DisplayName),
		Role:           in.Role,
		OrganizationID: stringOrNil(orgID),
		IsActive:       true,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	u.Permissions = auth.RolePermissions(u.Role)

	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "created_by": p.UserID}).Info("user created")
	return u, nil
}

func (s *UserService) Update(ctx context.Context, p auth.Principal, id string, in UpdateUserInput) (*model.User, error) {
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}

	target, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := guardSuperAdmin(p, target); err != nil {
		return nil, err
	}
	manager := p.Can(auth.PermManageUsers)
	if target.ID != p.UserID {
		if !manager {
			return nil, appErrors.Forbidden("")
		}
		if err := checkOrganization(p, target.OrgID()); err != nil {
			return nil, err
		}
	}
	if (in.Role != nil || in.IsActive != nil) && !manager {
		return nil, appErrors.Forbidden("Insufficient permissions to change role or status")
	}
	if in.Role != nil && *in.Role == auth.RoleSuperAdmin && p.Role != auth.RoleSuperAdmin {
		return nil, appErrors.Forbidden("Only super admins can grant super admin")
	}
	if in.OrganizationID != nil && !p.IsAdmin() {
		return nil, appErrors.Forbidden("Only admins can move users between organizations")
	}

	upd := model.UserUpdate{Role: in.Role, IsActive: in.IsActive, OrganizationID: in.OrganizationID}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		upd.DisplayName = &name
	}
	if upd.Empty() {
		return nil, appErrors.BadRequest("No valid fields to update")
	}
	if err := s.Users.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}

func (s *UserService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsAdmin() {
		return appErrors.Forbidden("Only admins can delete users")
	}
	if id == p.UserID {
		return appErrors.BadRequest("Cannot delete your own account")
	}

	target, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkOrganization(p, target.OrgID()); err != nil {
		return err
	}
	if err := guardSuperAdmin(p, target); err != nil {
		return err
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{"user_id": id, "deleted_by": p.UserID}).Info("user deleted")
	return nil
}

// guardSuperAdmin keeps super admin accounts out of reach of every other role.
func guardSuperAdmin(p auth.Principal, target *model.User) error {
	if target.Role == auth.RoleSuperAdmin && p.Role != auth.RoleSuperAdmin {
		return appErrors.Forbidden("Only super admins can modify a super admin account")
	}
	return nil
}

// UpdateRole is reserved to super admins.
func (s *UserService) UpdateRole(ctx context.Context, p auth.Principal, id, role string) (*model.User, error) {
	if p.Role != auth.RoleSuperAdmin {
		return nil, appErrors.Forbidden("Only super admins can change roles")
	}
	if !auth.IsValidRole(role) {
		return nil, appErrors.BadRequest("Invalid role").WithDetails(map[string]any{"validRoles": auth.ValidRoles})
	}
	if err := s.Users.Update(ctx, id, model.UserUpdate{Role: &role}); err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}
