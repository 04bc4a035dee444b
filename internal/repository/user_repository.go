package repository

import (
	"context"
	"database/sql"

	"github.com/unclebandit/churchcare-backend/internal/db"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *model.User) error
	CreateWithOrganization(ctx context.Context, o *model.Organization, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, f model.UserFilter, offset, limit int) ([]*model.User, int, error)
	Update(ctx context.Context, id string, upd model.UserUpdate) error
	UpdateLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type UserRepository struct {
	DB *sql.DB
}

const userColumns = `u.id, u.email, u.password_hash, u.display_name, u.role, u.organization_id,
	o.name, u.is_active, u.last_login, u.created_at, u.updated_at`

const userFrom = `FROM users u LEFT JOIN organizations o ON u.organization_id = o.id`

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.OrganizationID,
		&u.OrganizationName, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return insertUser(ctx, r.DB, u)
}

// CreateWithOrganization registers a user together with a new organization.
func (r *UserRepository) CreateWithOrganization(ctx context.Context, o *model.Organization, u *model.User) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := insertOrganization(ctx, tx, o); err != nil {
			return err
		}
		u.OrganizationID = &o.ID
		return insertUser(ctx, tx, u)
	})
}

func insertUser(ctx context.Context, db execer, u *model.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, role, organization_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.OrganizationID, u.IsActive,
	)
	if isUniqueViolation(err) {
		return appErrors.Conflict("User with this email already exists")
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("User")
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE LOWER(u.email) = LOWER($1)`, email))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("User")
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) List(ctx context.Context, f model.UserFilter, offset, limit int) ([]*model.User, int, error) {
	w := &where{}
	if f.OrganizationID != "" {
		w.add("u.organization_id = $%[1]d", f.OrganizationID)
	}
	if f.Search != "" {
		w.add("(u.display_name ILIKE $%[1]d OR u.email ILIKE $%[1]d)", "%"+f.Search+"%")
	}
	if f.Role != "" {
		w.add("u.role = $%[1]d", f.Role)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := w.next()
	query := `SELECT ` + userColumns + ` ` + userFrom + ` ` + w.String() +
		` ORDER BY u.created_at DESC LIMIT $` + itoa(n) + ` OFFSET $` + itoa(n+1)
	rows, err := r.DB.QueryContext(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, id string, upd model.UserUpdate) error {
	s := &setList{}
	if upd.DisplayName != nil {
		s.add("display_name", *upd.DisplayName)
	}
	if upd.Role != nil {
		s.add("role", *upd.Role)
	}
	if upd.IsActive != nil {
		s.add("is_active", *upd.IsActive)
	}
	if upd.OrganizationID != nil {
		s.add("organization_id", *upd.OrganizationID)
	}
	if s.empty() {
		return appErrors.BadRequest("No valid fields to update")
	}
	query, args := s.build("users", id)
	return execAffectingOne(ctx, r.DB, "User", query, args...)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "User", `DELETE FROM users WHERE id = $1`, id)
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
