// internal/service/template_service.go
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

// RenderTemplate replaces every {key} placeholder with its value. Unknown
// placeholders are left untouched.
func RenderTemplate(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// MemberPlaceholders returns the values a template can reference for m.
func MemberPlaceholders(m *model.Member, organizationName string) map[string]string {
	return map[string]string{
		"first_name":        m.FirstName,
		"last_name":         m.LastName,
		"full_name":         strings.TrimSpace(m.FullName()),
		"email":             deref(m.Email),
		"phone":             deref(m.Phone),
		"organization_name": organizationName,
	}
}

type TemplateQuery struct {
	OrganizationID string
	TemplateType   string
	Category       string
	IsActive       *bool
	Page           Page
}

type TemplateInput struct {
	OrganizationID string   `json:"organizationId"`
	Name           string   `json:"name" validate:"required,max=200"`
	Subject        string   `json:"subject" validate:"max=500"`
	Content        string   `json:"content" validate:"required"`
	TemplateType   string   `json:"templateType" validate:"required,oneof=email sms notification"`
	Category       string   `json:"category" validate:"omitempty,oneof=welcome birthday anniversary prayer announcement reminder care"`
	Variables      []string `json:"variables"`
}

type TemplatePatch struct {
	Name         *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Subject      *string   `json:"subject"`
	Content      *string   `json:"content" validate:"omitempty,min=1"`
	TemplateType *string   `json:"templateType"`
	Category     *string   `json:"category"`
	Variables    *[]string `json:"variables"`
	IsActive     *bool     `json:"isActive"`
}

// Preview is a template rendered for one member.
type Preview struct {
	TemplateID string  `json:"templateId"`
	MemberID   string  `json:"memberId"`
	Subject    *string `json:"subject,omitempty"`
	Content    string  `json:"content"`
}

var (
	templateTypes      = []string{model.MessageTypeEmail, model.MessageTypeSMS, model.MessageTypeNotification}
	templateCategories = []string{
		model.CategoryWelcome, model.CategoryBirthday, model.CategoryAnniversary, model.CategoryPrayer,
		model.CategoryAnnouncement, model.CategoryReminder, model.CategoryCare,
	}
)

type TemplateService struct {
	Templates repository.TemplateRepositoryInterface
	Messages  repository.MessageRepositoryInterface
	Members   repository.MemberRepositoryInterface
	Orgs      repository.OrganizationRepositoryInterface
	Validator *validator.Validator
	Log       logrus.FieldLogger
}

func (s *TemplateService) List(ctx context.Context, p auth.Principal, q TemplateQuery) (*List[*model.MessageTemplate], error) {
	orgID, err := organization(p, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	templates, total, err := s.Templates.List(ctx, model.TemplateFilter{
		OrganizationID: orgID,
		TemplateType:   q.TemplateType,
		Category:       q.Category,
		IsActive:       q.IsActive,
	}, q.Page.Offset(), q.Page.Limit)
	if err != nil {
		return nil, err
	}
	return &List[*model.MessageTemplate]{Items: templates, Total: total, Page: q.Page}, nil
}

func (s *TemplateService) Get(ctx context.Context, p auth.Principal, id string) (*model.MessageTemplate, error) {
	t, err := s.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrganization(p, t.OrganizationID); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Create(ctx context.Context, p auth.Principal, in TemplateInput) (*model.MessageTemplate, error) {
	if err := requirePermission(p, auth.PermManageTemplates, auth.PermCreateTemplates); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	orgID, err := organization(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}

	exists, err := s.Templates.NameExists(ctx, orgID, in.Name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.Conflict("Template with this name already exists")
	}

	vars := model.StringList(in.Variables)
	if vars == nil {
		vars = model.StringList{}
	}
	t := &model.MessageTemplate{
		OrganizationID: orgID,
		Name:           in.Name,
		Subject:        stringOrNil(in.Subject),
		Content:        in.Content,
		TemplateType:   in.TemplateType,
		Category:       stringOrNil(in.Category),
		Variables:      vars,
		IsActive:       true,
		CreatedBy:      stringOrNil(p.UserID),
	}
	if err := s.Templates.Create(ctx, t); err != nil {
		return nil, err
	}
	return s.Templates.GetByID(ctx, t.ID)
}

// Update ignores templateType and category values outside their enums.
func (s *TemplateService) Update(ctx context.Context, p auth.Principal, id string, in TemplatePatch) (*model.MessageTemplate, error) {
	if err := s.Validator.Validate(in); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.CanModifyOwned(t.CreatedByValue()) {
		return nil, appErrors.Forbidden("You can only modify templates you created")
	}

	upd := model.TemplateUpdate{Subject: in.Subject, Content: in.Content, IsActive: in.IsActive}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != t.Name {
			exists, err := s.Templates.NameExists(ctx, t.OrganizationID, name, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, appErrors.Conflict("Template with this name already exists")
			}
		}
		upd.Name = &name
	}
	if in.TemplateType != nil && contains(templateTypes, *in.TemplateType) {
		upd.TemplateType = in.TemplateType
	}
	if in.Category != nil && contains(templateCategories, *in.Category) {
		upd.Category = in.Category
	}
	if in.Variables != nil {
		vars := model.StringList(*in.Variables)
		upd.Variables = &vars
	}
	if upd.Empty() {
		return nil, appErrors.BadRequest("No valid fields to update")
	}
	if err := s.Templates.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Templates.GetByID(ctx, id)
}

// Delete refuses templates that messages still reference.
func (s *TemplateService) Delete(ctx context.Context, p auth.Principal, id string) error {
	t, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if !p.CanModifyOwned(t.CreatedByValue()) {
		return appErrors.Forbidden("You can only delete templates you created")
	}
	n, err := s.Messages.CountByTemplate(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return appErrors.BadRequest("Cannot delete template that is being used by messages")
	}
	return s.Templates.Delete(ctx, id)
}

func (s *TemplateService) Preview(ctx context.Context, p auth.Principal, id, memberID string) (*Preview, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, appErrors.BadRequest("memberId is required")
	}
	t, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	m, err := s.Members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.OrganizationID != t.OrganizationID {
		return nil, appErrors.BadRequest("Member does not belong to the template's organization")
	}

	var orgName string
	if org, err := s.Orgs.GetByID(ctx, t.OrganizationID); err == nil {
		orgName = org.Name
	} else if !appErrors.IsNotFound(err) {
		return nil, err
	}

	data := MemberPlaceholders(m, orgName)
	out := &Preview{TemplateID: t.ID, MemberID: m.ID, Content: RenderTemplate(t.Content, data)}
	if t.Subject != nil {
		subject := RenderTemplate(*t.Subject, data)
		out.Subject = &subject
	}
	return out, nil
}
