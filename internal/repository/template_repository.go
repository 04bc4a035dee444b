package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	List(ctx context.Context, f model.TemplateFilter, offset, limit int) ([]*model.MessageTemplate, int, error)
	GetByID(ctx context.Context, id string) (*model.MessageTemplate, error)
	Create(ctx context.Context, t *model.MessageTemplate) error
	Update(ctx context.Context, id string, upd model.TemplateUpdate) error
	Delete(ctx context.Context, id string) error
	NameExists(ctx context.Context, orgID, name, excludeID string) (bool, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

const templateColumns = `t.id, t.organization_id, t.name, t.subject, t.content, t.template_type, t.category,
	t.variables, t.is_active, t.created_by, u.display_name,
	(SELECT COUNT(*) FROM messages msg WHERE msg.template_id = t.id),
	t.created_at, t.updated_at`

const templateFrom = `FROM message_templates t LEFT JOIN users u ON t.created_by = u.id`

func scanTemplate(s rowScanner) (*model.MessageTemplate, error) {
	var t model.MessageTemplate
	err := s.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.Content, &t.TemplateType, &t.Category,
		&t.Variables, &t.IsActive, &t.CreatedBy, &t.CreatedByName, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context, f model.TemplateFilter, offset, limit int) ([]*model.MessageTemplate, int, error) {
	w := &where{}
	if f.OrganizationID != "" {
		w.add("t.organization_id = $%[1]d", f.OrganizationID)
	}
	if f.TemplateType != "" {
		w.add("t.template_type = $%[1]d", f.TemplateType)
	}
	if f.Category != "" {
		w.add("t.category = $%[1]d", f.Category)
	}
	if f.IsActive != nil {
		w.add("t.is_active = $%[1]d", *f.IsActive)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_templates t `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := w.next()
	query := `SELECT ` + templateColumns + ` ` + templateFrom + ` ` + w.String() +
		` ORDER BY t.name LIMIT $` + itoa(n) + ` OFFSET $` + itoa(n+1)
	rows, err := r.DB.QueryContext(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	templates := []*model.MessageTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, t)
	}
	return templates, total, rows.Err()
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.MessageTemplate, error) {
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, `SELECT `+templateColumns+` `+templateFrom+` WHERE t.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Template")
		}
		return nil, err
	}
	return t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.MessageTemplate) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Variables == nil {
		t.Variables = model.StringList{}
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO message_templates (
			id, organization_id, name, subject, content, template_type, category, variables, is_active, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OrganizationID, t.Name, t.Subject, t.Content, t.TemplateType, t.Category, t.Variables,
		t.IsActive, t.CreatedBy,
	)
	return err
}

func (r *TemplateRepository) Update(ctx context.Context, id string, upd model.TemplateUpdate) error {
	s := &setList{}
	if upd.Name != nil {
		s.add("name", *upd.Name)
	}
	if upd.Subject != nil {
		s.add("subject", *upd.Subject)
	}
	if upd.Content != nil {
		s.add("content", *upd.Content)
	}
	if upd.TemplateType != nil {
		s.add("template_type", *upd.TemplateType)
	}
	if upd.Category != nil {
		s.add("category", *upd.Category)
	}
	if upd.Variables != nil {
		s.add("variables", *upd.Variables)
	}
	if upd.IsActive != nil {
		s.add("is_active", *upd.IsActive)
	}
	if s.empty() {
		return appErrors.BadRequest("No valid fields to update")
	}
	query, args := s.build("message_templates", id)
	return execAffectingOne(ctx, r.DB, "Template", query, args...)
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "Template", `DELETE FROM message_templates WHERE id = $1`, id)
}

func (r *TemplateRepository) NameExists(ctx context.Context, orgID, name, excludeID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM message_templates
			WHERE organization_id = $1 AND LOWER(name) = LOWER($2) AND id <> $3
		)`, orgID, name, excludeID,
	).Scan(&exists)
	return exists, err
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
