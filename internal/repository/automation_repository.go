package repository

import (
	"context"
	"database/sql"

	"github.com/unclebandit/churchcare-backend/internal/db"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

type AutomationRepositoryInterface interface {
	List(ctx context.Context, f model.AutomationFilter, offset, limit int) ([]*model.AutomationRule, int, error)
	GetByID(ctx context.Context, id string) (*model.AutomationRule, error)
	Create(ctx context.Context, rule *model.AutomationRule) error
	Update(ctx context.Context, id string, upd model.AutomationUpdate) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*model.AutomationRule, error)
	CreateLogs(ctx context.Context, logs []*model.AutomationLog) error
	ListLogs(ctx context.Context, ruleID string, offset, limit int) ([]*model.AutomationLog, int, error)
}

type AutomationRepository struct {
	DB *sql.DB
}

const ruleColumns = `a.id, a.organization_id, a.name, a.description, a.trigger_type, a.trigger_conditions,
	a.action_type, a.action_config, a.is_active, a.created_by, u.display_name, a.created_at, a.updated_at`

const ruleFrom = `FROM automation_rules a LEFT JOIN users u ON a.created_by = u.id`

const ruleStatsColumns = `COALESCE(s.total, 0), COALESCE(s.successful, 0), COALESCE(s.failed, 0), s.last_execution`

const ruleStatsJoin = `LEFT JOIN (
		SELECT rule_id,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'success') AS successful,
		       COUNT(*) FILTER (WHERE status = 'failed') AS failed,
		       MAX(execution_date) AS last_execution
		FROM automation_logs
		GROUP BY rule_id
	) s ON s.rule_id = a.id`

func scanRule(s rowScanner, withStats bool) (*model.AutomationRule, error) {
	var rule model.AutomationRule
	dest := []any{&rule.ID, &rule.OrganizationID, &rule.Name, &rule.Description, &rule.TriggerType,
		&rule.TriggerConditions, &rule.ActionType, &rule.ActionConfig, &rule.IsActive, &rule.CreatedBy,
		&rule.CreatedByName, &rule.CreatedAt, &rule.UpdatedAt}
	var stats model.RuleStats
	if withStats {
		dest = append(dest, &stats.TotalExecutions, &stats.SuccessfulExecutions, &stats.FailedExecutions, &stats.LastExecution)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if withStats {
		rule.Stats = &stats
	}
	return &rule, nil
}

func (r *AutomationRepository) queryRules(ctx context.Context, withStats bool, query string, args ...any) ([]*model.AutomationRule, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []*model.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows, withStats)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// List returns rules with their execution stats.
func (r *AutomationRepository) List(ctx context.Context, f model.AutomationFilter, offset, limit int) ([]*model.AutomationRule, int, error) {
	w := &where{}
	if f.OrganizationID != "" {
		w.add("a.organization_id = $%[1]d", f.OrganizationID)
	}
	if f.TriggerType != "" {
		w.add("a.trigger_type = $%[1]d", f.TriggerType)
	}
	if f.IsActive != nil {
		w.add("a.is_active = $%[1]d", *f.IsActive)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_rules a `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := w.next()
	query := `SELECT ` + ruleColumns + `, ` + ruleStatsColumns + ` ` + ruleFrom + ` ` + ruleStatsJoin + ` ` +
		w.String() + ` ORDER BY a.created_at DESC LIMIT $` + itoa(n) + ` OFFSET $` + itoa(n+1)
	rules, err := r.queryRules(ctx, true, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*model.AutomationRule, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+ruleColumns+`, `+ruleStatsColumns+` `+ruleFrom+` `+ruleStatsJoin+` WHERE a.id = $1`, id)
	rule, err := scanRule(row, true)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.NotFound("Automation rule")
		}
		return nil, err
	}
	return rule, nil
}

func (r *AutomationRepository) Create(ctx context.Context, rule *model.AutomationRule) error {
	if rule.ID == "" {
		rule.ID = newID()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO automation_rules (
			id, organization_id, name, description, trigger_type, trigger_conditions,
			action_type, action_config, is_active, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rule.ID, rule.OrganizationID, rule.Name, rule.Description, rule.TriggerType, rule.TriggerConditions,
		rule.ActionType, rule.ActionConfig, rule.IsActive, rule.CreatedBy,
	)
	return err
}

func (r *AutomationRepository) Update(ctx context.Context, id string, upd model.AutomationUpdate) error {
	s := &setList{}
	if upd.Name != nil {
		s.add("name", *upd.Name)
	}
	if upd.Description != nil {
		s.add("description", *upd.Description)
	}
	if upd.TriggerConditions != nil {
		s.add("trigger_conditions", *upd.TriggerConditions)
	}
	if upd.ActionConfig != nil {
		s.add("action_config", *upd.ActionConfig)
	}
	if upd.IsActive != nil {
		s.add("is_active", *upd.IsActive)
	}
	if s.empty() {
		return appErrors.BadRequest("No valid fields to update")
	}
	query, args := s.build("automation_rules", id)
	return execAffectingOne(ctx, r.DB, "Automation rule", query, args...)
}

func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, "Automation rule", `DELETE FROM automation_rules WHERE id = $1`, id)
}

// ListActive returns every active rule across organizations for the scheduler.
func (r *AutomationRepository) ListActive(ctx context.Context) ([]*model.AutomationRule, error) {
	return r.queryRules(ctx, false,
		`SELECT `+ruleColumns+` `+ruleFrom+` WHERE a.is_active = TRUE ORDER BY a.organization_id, a.created_at`)
}

// CreateLogs writes the log rows of one rule execution atomically.
func (r *AutomationRepository) CreateLogs(ctx context.Context, logs []*model.AutomationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO automation_logs (id, rule_id, member_id, status, details, execution_date)
			VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, l := range logs {
			if l.ID == "" {
				l.ID = newID()
			}
			if _, err := stmt.ExecContext(ctx, l.ID, l.RuleID, l.MemberID, l.Status, l.Details, l.ExecutionDate); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AutomationRepository) ListLogs(ctx context.Context, ruleID string, offset, limit int) ([]*model.AutomationLog, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_logs WHERE rule_id = $1`, ruleID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT l.id, l.rule_id, l.member_id, m.first_name || ' ' || m.last_name, l.status, l.details, l.execution_date
		FROM automation_logs l
		LEFT JOIN members m ON l.member_id = m.id
		WHERE l.rule_id = $1
		ORDER BY l.execution_date DESC
		LIMIT $2 OFFSET $3`, ruleID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []*model.AutomationLog{}
	for rows.Next() {
		var l model.AutomationLog
		if err := rows.Scan(&l.ID, &l.RuleID, &l.MemberID, &l.MemberName, &l.Status, &l.Details, &l.ExecutionDate); err != nil {
			return nil, 0, err
		}
		logs = append(logs, &l)
	}
	return logs, total, rows.Err()
}

var _ AutomationRepositoryInterface = (*AutomationRepository)(nil)
