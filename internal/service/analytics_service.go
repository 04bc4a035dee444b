package service

import (
	"context"
	"time"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
)

const (
	AnalyticsOverview   = "overview"
	AnalyticsMembers    = "members"
	AnalyticsMessages   = "messages"
	AnalyticsGrowth     = "growth"
	AnalyticsEngagement = "engagement"
	AnalyticsWelfare    = "welfare"
)

type AnalyticsQuery struct {
	Type           string
	OrganizationID string
	StartDate      string
	EndDate        string
}

type AnalyticsService struct {
	Analytics repository.AnalyticsRepositoryInterface
	Now       func() time.Time
}

// Report returns the analytics payload for the requested type.
func (s *AnalyticsService) Report(ctx context.Context, p auth.Principal, q AnalyticsQuery) (any, error) {
	if err := requirePermission(p, auth.PermViewAnalytics); err != nil {
		return nil, err
	}
	orgID, err := organization(p, q.OrganizationID)
	if err != nil {
		return nil, err
	}

	var dr model.DateRange
	if dr.Start, err = parseDate("startDate", q.StartDate); err != nil {
		return nil, err
	}
	if dr.End, err = parseDate("endDate", q.EndDate); err != nil {
		return nil, err
	}
	if dr.Bounded() {
		if dr.End.Before(*dr.Start) {
			return nil, appErrors.BadRequest("endDate must not be before startDate")
		}
		// Include the whole end day.
		end := dr.End.Add(24*time.Hour - time.Nanosecond)
		dr.End = &end
	}

	switch q.Type {
	case "", AnalyticsOverview:
		return s.Analytics.Overview(ctx, orgID)
	case AnalyticsMembers:
		return s.Analytics.Members(ctx, orgID, dr)
	case AnalyticsMessages:
		return s.Analytics.Messages(ctx, orgID, dr)
	case AnalyticsGrowth:
		return s.Analytics.Growth(ctx, orgID, dr)
	case AnalyticsEngagement:
		return s.Analytics.Engagement(ctx, orgID, dr)
	case AnalyticsWelfare:
		return s.Analytics.Welfare(ctx, orgID, s.Now())
	}
	return nil, appErrors.BadRequest("Invalid analytics type").WithDetails(map[string]any{
		"validTypes": []string{AnalyticsOverview, AnalyticsMembers, AnalyticsMessages, AnalyticsGrowth, AnalyticsEngagement, AnalyticsWelfare},
	})
}
