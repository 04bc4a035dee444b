package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type MemberRepositoryInterface interface {
	List(ctx context.Context, f model.MemberFilter, offset, limit int) ([]*model.Member, int, error)
	GetByID(ctx context.Context, id string) (*model.Member, error)
	Create(ctx context.Context, m *model.Member) error
	Update(ctx context.Context, id string, upd model.MemberUpdate) error
	Delete(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, orgID, email, excludeID string) (bool, error)
	ExistsByPhone(ctx context.Context, orgID, phone, excludeID string) (bool, error)
	AppendNote(ctx context.Context, id, note string) error

	// Recipient and automation selection. All return active members only.
	ListActive(ctx context.Context, orgID string) ([]*model.Member, error)
	ListActiveByIDs(ctx context.Context, orgID string, ids []string) ([]*model.Member, error)
	FindByBirthday(ctx context.Context, orgID string, month time.Month, day int) ([]*model.Member, error)
	FindByAnniversary(ctx context.Context, orgID string, month time.Month, day, beforeYear int) ([]*model.Member, error)
	FindJoinedOn(ctx context.Context, orgID string, date time.Time) ([]*model.Member, error)
	FindAbsentSince(ctx context.Context, orgID string, since time.Time) ([]*model.Member, error)
}

type MemberRepository struct {
	DB *sql.DB
}

const memberColumns = `m.id, m.organization_id, o.name, m.first_name, m.last_name, m.email, m.phone,
	m.address, m.date_of_birth, m.gender, m.marital_status, m.member_since, m.member_type, m.status,
	m.emergency_contact_name, m.emergency_contact_phone, m.notes, m.tags, m.created_at, m.updated_at`

const memberFrom = `FROM members m LEFT JOIN organizations o ON m.organization_id = o.id`

func scanMember(s rowScanner) (*model.Member, error) {
	var m model.Member
	err := s.Scan(&m.ID, &m.OrganizationID, &m.OrganizationName, &m.FirstName, &m.LastName, &m.Email,
		&m.Phone, &m.Address, &m.DateOfBirth, &m.Gender, &m.MaritalStatus, &m.MemberSince, &m.MemberType,
		&m.Status, &m.EmergencyContactName, &m.EmergencyContactPhone, &m.Notes, &m.Tags, &m.CreatedAt,
		&m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) queryMembers(ctx context.Context, query string, args ...any) ([]*model.Member, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []*model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) List(ctx context.Context, f model.MemberFilter, offset, limit int) ([]*model.Member, int, error) {
	w := &where{}
	if f.OrganizationID != "" {
		w.add("m.organization_id = $%[1]d", f.OrganizationID)
	}
	if f.Search != "" {
		w.add("(m.first_name ILIKE $%[1]d OR m.last_name ILIKE $%[1]d OR m.email ILIKE $%[1]d OR m.phone ILIKE $%[1]d)", "%"+f.Search+"%")
	}
	if f.Status != "" {
		w.add("m.status = $%[1]d", f.Status)
	}
	if f.MemberType != "" {
		w.add("m.member_type = $%[1]d", f.MemberType)
	}
	if f.Gender != "" {
		w.add("m.gender = $%[1]d", f.Gender)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM members m `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := w.next()
	query := `SELECT ` + memberColumns + ` ` + memberFrom + ` ` + w.String() +
		` ORDER BY m.first_name, m.last_name LIMIT $` + itoa(n) + ` OFFSET $` + itoa(n+1)
	members, err := r.queryMembers(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*model.Member, error) {
	m, err := scanMember(r.DB.QueryRowContext(ctx, `SELECT `+memberColumns+` `+memberFrom+` WHERE m.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Member")
		}
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) Create(ctx context.Context, m *model.Member) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Tags == nil {
		m.Tags = model.StringList{}
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO members (
			id, organization_id, first_name, last_name, email, phone, address, date_of_birth,
			gender, marital_status, member_since, member_type, status, emergency_contact_name,
			emergency_contact_phone, notes, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		m.ID, m.OrganizationID, m.FirstName, m.LastName, m.Email, m.Phone, m.Address, m.DateOfBirth,
		m.Gender, m.MaritalStatus, m.MemberSince, m.MemberType, m.Status, m.EmergencyContactName,
		m.EmergencyContactPhone, m.Notes, m.Tags,
	)
	return err
}

func (r *MemberRepository) Update(ctx context.Context, id string, upd model.MemberUpdate) error {
	s := &setList{}
	if upd.FirstName != nil {
		s.add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		s.add("last_name", *upd.LastName)
	}
	if upd.Email != nil {
		s.add("email", *upd.Email)
	}
	if upd.Phone != nil {
		s.add("phone", *upd.Phone)
	}
	if upd.Address != nil {
		s.add("address", *upd.Address)
	}
	if upd.DateOfBirth != nil {
		s.add("date_of_birth", *upd.DateOfBirth)
	}
	if upd.Gender != nil {
		s.add("gender", *upd.Gender)
	}
	if upd.MaritalStatus != nil {
		s.add("marital_status", *upd.MaritalStatus)
	}
	if upd.MemberSince != nil {
		s.add("member_since", *upd.MemberSince)
	}
	if upd.MemberType != nil {
		s.add("member_type", *upd.MemberType)
	}
	if upd.Status != nil {
		s.add("status", *upd.Status)
	}
	if upd.EmergencyContactName != nil {
		s.add("emergency_contact_name", *upd.EmergencyContactName)
	}
	if upd.EmergencyContactPhone != nil {
		s.add("emergency_contact_phone", *upd.EmergencyContactPhone)
	}
	if upd.Notes != nil {
		s.add("notes", *upd.Notes)
	}
	if upd.Tags != nil {
		s.add("tags", *upd.Tags)
	}
	if s.empty() {
		return appErrors.BadRequest("No valid fields to update")
	}
	query, args := s.build("members", id)
	return execAffectingOne(ctx, r.DB, "Member", query, args...)
}

func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "Member", `DELETE FROM members WHERE id = $1`, id)
}

func (r *MemberRepository) ExistsByEmail(ctx context.Context, orgID, email, excludeID string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER($2)", orgID, email, excludeID)
}

func (r *MemberRepository) ExistsByPhone(ctx context.Context, orgID, phone, excludeID string) (bool, error) {
	return r.exists(ctx, "phone = $2", orgID, phone, excludeID)
}

func (r *MemberRepository) exists(ctx context.Context, clause, orgID, value, excludeID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE organization_id = $1 AND `+clause+` AND id <> $3)`,
		orgID, value, excludeID,
	).Scan(&exists)
	return exists, err
}

// AppendNote adds note as a new paragraph of the member's notes.
func (r *MemberRepository) AppendNote(ctx context.Context, id, note string) error {
	return execAffectingOne(ctx, r.DB, "Member", `
		UPDATE members
		SET notes = CASE WHEN notes IS NULL OR notes = '' THEN $1 ELSE notes || E'\n\n' || $1 END,
		    updated_at = NOW()
		WHERE id = $2`, note, id)
}

const activeMembers = `SELECT ` + memberColumns + ` ` + memberFrom + ` WHERE m.organization_id = $1 AND m.status = 'active'`

func (r *MemberRepository) ListActive(ctx context.Context, orgID string) ([]*model.Member, error) {
	return r.queryMembers(ctx, activeMembers+` ORDER BY m.first_name, m.last_name`, orgID)
}

func (r *MemberRepository) ListActiveByIDs(ctx context.Context, orgID string, ids []string) ([]*model.Member, error) {
	return r.queryMembers(ctx, activeMembers+` AND m.id = ANY($2) ORDER BY m.first_name, m.last_name`, orgID, pq.Array(ids))
}

func (r *MemberRepository) FindByBirthday(ctx context.Context, orgID string, month time.Month, day int) ([]*model.Member, error) {
	return r.queryMembers(ctx, activeMembers+`
		AND m.date_of_birth IS NOT NULL
		AND EXTRACT(MONTH FROM m.date_of_birth) = $2
		AND EXTRACT(DAY FROM m.date_of_birth) = $3`, orgID, int(month), day)
}

// FindByAnniversary matches the membership anniversary, skipping members who
// joined in beforeYear or later.
func (r *MemberRepository) FindByAnniversary(ctx context.Context, orgID string, month time.Month, day, beforeYear int) ([]*model.Member, error) {
	return r.queryMembers(ctx, activeMembers+`
		AND m.member_since IS NOT NULL
		AND EXTRACT(MONTH FROM m.member_since) = $2
		AND EXTRACT(DAY FROM m.member_since) = $3
		AND EXTRACT(YEAR FROM m.member_since) < $4`, orgID, int(month), day, beforeYear)
}

func (r *MemberRepository) FindJoinedOn(ctx context.Context, orgID string, date time.Time) ([]*model.Member, error) {
	return r.queryMembers(ctx, activeMembers+` AND m.member_since = $2::date`, orgID, date.Format("2006-01-02"))
}

func (r *MemberRepository) FindAbsentSince(ctx context.Context, orgID string, since time.Time) ([]*model.Member, error) {
	return r.queryMembers(ctx, activeMembers+`
		AND NOT EXISTS (
			SELECT 1 FROM member_activities a
			WHERE a.member_id = m.id AND a.activity_date >= $2
		)`, orgID, since)
}

var _ MemberRepositoryInterface = (*MemberRepository)(nil)
