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

type RegisterInput struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=6"`
	DisplayName      string `json:"displayName" validate:"required,max=100"`
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName" validate:"max=200"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token        string              `json:"token,omitempty"`
	User         *model.User         `json:"user"`
	Organization *model.Organization `json:"organization,omitempty"`
}

type AuthService struct {
	Users     repository.UserRepositoryInterface
	Orgs      repository.OrganizationRepositoryInterface
	Tokens    *auth.TokenManager
	Passwords *auth.PasswordHasher
	Validator *validator.Validator
	Log       logrus.FieldLogger
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}

	exists, err := s.Users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.Conflict("User with this email already exists")
	}

	hash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         auth.RoleMember,
		IsActive:     true,
	}

	var org *model.Organization
	switch {
	case in.OrganizationID != "":
		org, err = s.Orgs.GetByID(ctx, in.OrganizationID)
		if err != nil {
			if appErrors.IsNotFound(err) {
				return nil, appErrors.BadRequest("Organization not found")
			}
			return nil, err
		}
		user.OrganizationID = &org.ID
		err = s.Users.Create(ctx, user)
	case strings.TrimSpace(in.OrganizationName) != "":
		// The founder of a new organization administers it.
		org = &model.Organization{Name: strings.TrimSpace(in.OrganizationName)}
		user.Role = auth.RoleAdmin
		err = s.Users.CreateWithOrganization(ctx, org, user)
	default:
		err = s.Users.Create(ctx, user)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.Tokens.Generate(user.ID, user.Email, user.Role, user.OrgID())
	if err != nil {
		return nil, err
	}
	user.Permissions = auth.RolePermissions(user.Role)

	s.Log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return &AuthResult{Token: token, User: user, Organization: org}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, appErrors.Unauthorized("Account is deactivated")
	}
	if !s.Passwords.Compare(in.Password, user.PasswordHash) {
		return nil, appErrors.Unauthorized("Invalid credentials")
	}

	if err := s.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	token, err := s.Tokens.Generate(user.ID, user.Email, user.Role, user.OrgID())
	if err != nil {
		return nil, err
	}
	user.Permissions = auth.RolePermissions(user.Role)

	org, err := s.organizationOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user, Organization: org}, nil
}

// Me returns the caller's profile with permissions and organization.
func (s *AuthService) Me(ctx context.Context, p auth.Principal) (*AuthResult, error) {
	user, err := s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, appErrors.Unauthorized("Account is deactivated")
	}
	user.Permissions = auth.RolePermissions(user.Role)

	org, err := s.organizationOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Organization: org}, nil
}

func (s *AuthService) organizationOf(ctx context.Context, u *model.User) (*model.Organization, error) {
	if u.OrgID() == "" {
		return nil, nil
	}
	org, err := s.Orgs.GetByID(ctx, u.OrgID())
	if err != nil && appErrors.IsNotFound(err) {
		return nil, nil
	}
	return org, err
}
