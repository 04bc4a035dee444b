package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type OrganizationRepositoryInterface interface {
	Create(ctx context.Context, o *model.Organization) error
	GetByID(ctx context.Context, id string) (*model.Organization, error)
}

type OrganizationRepository struct {
	DB *sql.DB
}

func (r *OrganizationRepository) Create(ctx context.Context, o *model.Organization) error {
	return insertOrganization(ctx, r.DB, o)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOrganization(ctx context.Context, db execer, o *model.Organization) error {
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Type == "" {
		o.Type = "church"
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, type) VALUES ($1, $2, $3)`,
		o.ID, o.Name, o.Type,
	)
	return err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	var o model.Organization
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Type, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Organization")
		}
		return nil, err
	}
	return &o, nil
}

var _ OrganizationRepositoryInterface = (*OrganizationRepository)(nil)
