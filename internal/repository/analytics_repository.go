package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/churchcare-backend/internal/model"
)

type AnalyticsRepositoryInterface interface {
	Overview(ctx context.Context, orgID string) (*model.OverviewAnalytics, error)
	Members(ctx context.Context, orgID string, dr model.DateRange) (*model.MemberAnalytics, error)
	Messages(ctx context.Context, orgID string, dr model.DateRange) (*model.MessageAnalytics, error)
	Growth(ctx context.Context, orgID string, dr model.DateRange) (*model.GrowthAnalytics, error)
	Engagement(ctx context.Context, orgID string, dr model.DateRange) (*model.EngagementAnalytics, error)
	Welfare(ctx context.Context, orgID string, now time.Time) (*model.WelfareStats, error)
}

type AnalyticsRepository struct {
	DB *sql.DB
}

// Default look-back windows when no explicit range is supplied.
const (
	memberWindowMonths     = 12
	messageWindowMonths    = 12
	growthWindowMonths     = 24
	engagementWindowMonths = 6
)

// dateFilter returns an "AND column ..." clause whose placeholders start at
// first, plus the args it needs.
func dateFilter(column string, dr model.DateRange, months, first int) (string, []any) {
	if dr.Bounded() {
		return fmt.Sprintf(" AND %s BETWEEN $%d AND $%d", column, first, first+1), []any{*dr.Start, *dr.End}
	}
	return fmt.Sprintf(" AND %s >= NOW() - INTERVAL '%d months'", column, months), nil
}

func (r *AnalyticsRepository) rows(ctx context.Context, query string, args ...any) ([]model.Row, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (r *AnalyticsRepository) row(ctx context.Context, query string, args ...any) (model.Row, error) {
	rows, err := r.rows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return model.Row{}, nil
	}
	return rows[0], nil
}

func (r *AnalyticsRepository) Overview(ctx context.Context, orgID string) (*model.OverviewAnalytics, error) {
	out := &model.OverviewAnalytics{}
	var err error

	if out.Overview.Members, err = r.row(ctx, `
		SELECT
			COUNT(*) AS total_members,
			COUNT(*) FILTER (WHERE status = 'active') AS active_members,
			COUNT(*) FILTER (WHERE member_type = 'new_convert') AS new_converts,
			COUNT(*) FILTER (WHERE member_type = 'visitor') AS visitors,
			COUNT(*) FILTER (WHERE member_type = 'leader') AS leaders
		FROM members
		WHERE organization_id = $1`, orgID); err != nil {
		return nil, err
	}

	if out.Overview.Messages, err = r.row(ctx, `
		SELECT
			COUNT(*) AS total_messages,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent_messages,
			COUNT(*) FILTER (WHERE status = 'scheduled') AS scheduled_messages,
			COALESCE(SUM(sent_count), 0) AS total_recipients_reached
		FROM messages
		WHERE organization_id = $1`, orgID); err != nil {
		return nil, err
	}

	if out.Overview.Templates, err = r.row(ctx, `
		SELECT
			COUNT(*) AS total_templates,
			COUNT(*) FILTER (WHERE is_active) AS active_templates
		FROM message_templates
		WHERE organization_id = $1`, orgID); err != nil {
		return nil, err
	}

	if out.Overview.Automation, err = r.row(ctx, `
		SELECT
			COUNT(*) AS total_rules,
			COUNT(*) FILTER (WHERE is_active) AS active_rules
		FROM automation_rules
		WHERE organization_id = $1`, orgID); err != nil {
		return nil, err
	}

	if out.RecentActivity, err = r.rows(ctx, `
		SELECT 'member' AS type,
		       first_name || ' ' || last_name AS description,
		       created_at AS activity_date
		FROM members
		WHERE organization_id = $1 AND created_at >= NOW() - INTERVAL '30 days'
		UNION ALL
		SELECT 'message' AS type,
		       'Message sent: ' || COALESCE(subject, LEFT(content, 40)) AS description,
		       sent_at AS activity_date
		FROM messages
		WHERE organization_id = $1 AND sent_at >= NOW() - INTERVAL '30 days'
		ORDER BY activity_date DESC
		LIMIT 10`, orgID); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *AnalyticsRepository) Members(ctx context.Context, orgID string, dr model.DateRange) (*model.MemberAnalytics, error) {
	out := &model.MemberAnalytics{}
	filter, fargs := dateFilter("created_at", dr, memberWindowMonths, 2)
	var err error

	if out.MemberGrowth, err = r.rows(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month, COUNT(*) AS new_members
		FROM members
		WHERE organization_id = $1`+filter+`
		GROUP BY 1
		ORDER BY 1`, append([]any{orgID}, fargs...)...); err != nil {
		return nil, err
	}

	if out.Demographics.Gender, err = r.rows(ctx, `
		SELECT gender, COUNT(*) AS count
		FROM members
		WHERE organization_id = $1 AND status = 'active'
		GROUP BY gender`, orgID); err != nil {
		return nil, err
	}

	if out.Demographics.AgeGroups, err = r.rows(ctx, `
		SELECT age_group, COUNT(*) AS count
		FROM (
			SELECT CASE
				WHEN date_of_birth IS NULL THEN 'Unknown'
				WHEN date_part('year', age(date_of_birth)) < 18 THEN 'Under 18'
				WHEN date_part('year', age(date_of_birth)) <= 30 THEN '18-30'
				WHEN date_part('year', age(date_of_birth)) <= 50 THEN '31-50'
				WHEN date_part('year', age(date_of_birth)) <= 65 THEN '51-65'
				ELSE 'Over 65'
			END AS age_group
			FROM members
			WHERE organization_id = $1 AND status = 'active'
		) a
		GROUP BY age_group`, orgID); err != nil {
		return nil, err
	}

	if out.Demographics.MemberTypes, err = r.rows(ctx, `
		SELECT member_type, COUNT(*) AS count
		FROM members
		WHERE organization_id = $1 AND status = 'active'
		GROUP BY member_type`, orgID); err != nil {
		return nil, err
	}

	if out.Demographics.MaritalStatus, err = r.rows(ctx, `
		SELECT marital_status, COUNT(*) AS count
		FROM members
		WHERE organization_id = $1 AND status = 'active'
		GROUP BY marital_status`, orgID); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *AnalyticsRepository) Messages(ctx context.Context, orgID string, dr model.DateRange) (*model.MessageAnalytics, error) {
	out := &model.MessageAnalytics{}
	filter, fargs := dateFilter("created_at", dr, messageWindowMonths, 2)
	args := append([]any{orgID}, fargs...)
	var err error

	if out.MessageVolume, err = r.rows(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month,
		       COUNT(*) AS total_messages,
		       COUNT(*) FILTER (WHERE status = 'sent') AS sent_messages,
		       COALESCE(SUM(sent_count), 0) AS total_recipients
		FROM messages
		WHERE organization_id = $1`+filter+`
		GROUP BY 1
		ORDER BY 1`, args...); err != nil {
		return nil, err
	}

	if out.MessageTypes, err = r.rows(ctx, `
		SELECT message_type, COUNT(*) AS count, ROUND(AVG(sent_count), 2) AS avg_recipients
		FROM messages
		WHERE organization_id = $1 AND status = 'sent'`+filter+`
		GROUP BY message_type`, args...); err != nil {
		return nil, err
	}

	if out.SuccessRates, err = r.rows(ctx, `
		SELECT message_type,
		       SUM(recipient_count) AS total_recipients,
		       SUM(sent_count) AS successful_sends,
		       SUM(failed_count) AS failed_sends,
		       ROUND(SUM(sent_count)::numeric / NULLIF(SUM(recipient_count), 0) * 100, 2) AS success_rate
		FROM messages
		WHERE organization_id = $1 AND status = 'sent'`+filter+`
		GROUP BY message_type`, args...); err != nil {
		return nil, err
	}

	joinFilter := strings.Replace(filter, "created_at", "m.created_at", 1)
	if out.PopularTemplates, err = r.rows(ctx, `
		SELECT t.name, t.category, COUNT(m.id) AS usage_count
		FROM message_templates t
		LEFT JOIN messages m ON t.id = m.template_id`+joinFilter+`
		WHERE t.organization_id = $1
		GROUP BY t.id, t.name, t.category
		ORDER BY usage_count DESC
		LIMIT 10`, args...); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *AnalyticsRepository) Growth(ctx context.Context, orgID string, dr model.DateRange) (*model.GrowthAnalytics, error) {
	out := &model.GrowthAnalytics{}
	filter, fargs := dateFilter("created_at", dr, growthWindowMonths, 2)
	args := append([]any{orgID}, fargs...)
	var err error

	if out.MonthlyGrowth, err = r.rows(ctx, `
		SELECT month, new_members, prev_month,
		       CASE WHEN prev_month > 0
		            THEN ROUND((new_members - prev_month)::numeric / prev_month * 100, 2)
		            ELSE 0
		       END AS growth_rate
		FROM (
			SELECT to_char(created_at, 'YYYY-MM') AS month,
			       COUNT(*) AS new_members,
			       LAG(COUNT(*)) OVER (ORDER BY to_char(created_at, 'YYYY-MM')) AS prev_month
			FROM members
			WHERE organization_id = $1`+filter+`
			GROUP BY 1
		) g
		ORDER BY month`, args...); err != nil {
		return nil, err
	}

	if out.Retention, err = r.rows(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS join_month,
		       COUNT(*) AS total_joined,
		       COUNT(*) FILTER (WHERE status = 'active') AS still_active,
		       ROUND(COUNT(*) FILTER (WHERE status = 'active')::numeric / COUNT(*) * 100, 2) AS retention_rate
		FROM members
		WHERE organization_id = $1`+filter+`
		GROUP BY 1
		ORDER BY 1`, args...); err != nil {
		return nil, err
	}

	if out.Lifecycle, err = r.rows(ctx, `
		SELECT member_type AS stage,
		       COUNT(*) AS count,
		       ROUND(COUNT(*)::numeric / SUM(COUNT(*)) OVER () * 100, 2) AS percentage
		FROM members
		WHERE organization_id = $1 AND status = 'active'
		GROUP BY member_type`, orgID); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *AnalyticsRepository) Engagement(ctx context.Context, orgID string, dr model.DateRange) (*model.EngagementAnalytics, error) {
	out := &model.EngagementAnalytics{}
	filter, fargs := dateFilter("ma.activity_date", dr, engagementWindowMonths, 2)
	args := append([]any{orgID}, fargs...)
	var err error

	if out.ActivityEngagement, err = r.rows(ctx, `
		SELECT ma.activity_type,
		       COUNT(*) AS total_activities,
		       COUNT(DISTINCT ma.member_id) AS unique_participants,
		       to_char(ma.activity_date, 'YYYY-MM') AS month
		FROM member_activities ma
		JOIN members m ON ma.member_id = m.id
		WHERE m.organization_id = $1`+filter+`
		GROUP BY ma.activity_type, to_char(ma.activity_date, 'YYYY-MM')
		ORDER BY month, ma.activity_type`, args...); err != nil {
		return nil, err
	}

	if out.ActiveMembers, err = r.rows(ctx, `
		SELECT m.first_name || ' ' || m.last_name AS member_name,
		       COUNT(ma.id) AS activity_count,
		       STRING_AGG(DISTINCT ma.activity_type, ',') AS activities
		FROM members m
		JOIN member_activities ma ON m.id = ma.member_id
		WHERE m.organization_id = $1`+filter+`
		GROUP BY m.id, m.first_name, m.last_name
		ORDER BY activity_count DESC
		LIMIT 10`, args...); err != nil {
		return nil, err
	}

	if out.EngagementByType, err = r.rows(ctx, `
		SELECT m.member_type,
		       COUNT(ma.id) AS total_activities,
		       COUNT(DISTINCT m.id) AS active_members,
		       ROUND(COUNT(ma.id)::numeric / NULLIF(COUNT(DISTINCT m.id), 0), 2) AS avg_activities_per_member
		FROM members m
		LEFT JOIN member_activities ma ON m.id = ma.member_id`+filter+`
		WHERE m.organization_id = $1 AND m.status = 'active'
		GROUP BY m.member_type`, args...); err != nil {
		return nil, err
	}

	sentFilter := strings.Replace(filter, "ma.activity_date", "mr.sent_at", 1)
	if out.MessageEngagement, err = r.rows(ctx, `
		SELECT to_char(mr.sent_at, 'YYYY-MM') AS month,
		       COUNT(mr.id) AS total_sent,
		       COUNT(*) FILTER (WHERE mr.status = 'delivered') AS delivered,
		       ROUND(COUNT(*) FILTER (WHERE mr.status = 'delivered')::numeric / COUNT(mr.id) * 100, 2) AS delivery_rate
		FROM message_recipients mr
		JOIN messages m ON mr.message_id = m.id
		WHERE m.organization_id = $1 AND mr.sent_at IS NOT NULL`+sentFilter+`
		GROUP BY 1
		ORDER BY 1`, args...); err != nil {
		return nil, err
	}

	return out, nil
}

// Welfare returns the dashboard counters for welfare requests.
func (r *AnalyticsRepository) Welfare(ctx context.Context, orgID string, now time.Time) (*model.WelfareStats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	out := &model.WelfareStats{}
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('PENDING', 'UNDER_REVIEW')),
			COUNT(*) FILTER (WHERE status IN ('APPROVED', 'IN_PROGRESS')),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COALESCE(SUM(actual_amount) FILTER (WHERE status = 'COMPLETED'), 0),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM welfare_requests
		WHERE organization_id = $1`, orgID, monthStart,
	).Scan(&out.PendingRequests, &out.ApprovedRequests, &out.CompletedRequests, &out.TotalDisbursed, &out.RequestsThisMonth)
	if err != nil {
		return nil, err
	}

	if out.ByCategory, err = r.rows(ctx, `
		SELECT category, COUNT(*) AS count
		FROM welfare_requests
		WHERE organization_id = $1
		GROUP BY category
		ORDER BY count DESC`, orgID); err != nil {
		return nil, err
	}
	return out, nil
}

var _ AnalyticsRepositoryInterface = (*AnalyticsRepository)(nil)
