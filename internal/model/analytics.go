// internal/model/analytics.go
package model

import "time"

// Row is a single analytics result row keyed by column name.
type Row map[string]any

type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Bounded reports whether both ends of the range were supplied.
func (d DateRange) Bounded() bool {
	return d.Start != nil && d.End != nil
}

type OverviewAnalytics struct {
	Overview struct {
		Members    Row `json:"members"`
		Messages   Row `json:"messages"`
		Templates  Row `json:"templates"`
		Automation Row `json:"automation"`
	} `json:"overview"`
	RecentActivity []Row `json:"recentActivity"`
}

type MemberAnalytics struct {
	MemberGrowth []Row `json:"memberGrowth"`
	Demographics struct {
		Gender        []Row `json:"gender"`
		AgeGroups     []Row `json:"ageGroups"`
		MemberTypes   []Row `json:"memberTypes"`
		MaritalStatus []Row `json:"maritalStatus"`
	} `json:"demographics"`
}

type MessageAnalytics struct {
	MessageVolume    []Row `json:"messageVolume"`
	MessageTypes     []Row `json:"messageTypes"`
	SuccessRates     []Row `json:"successRates"`
	PopularTemplates []Row `json:"popularTemplates"`
}

type GrowthAnalytics struct {
	MonthlyGrowth []Row `json:"monthlyGrowth"`
	Retention     []Row `json:"retention"`
	Lifecycle     []Row `json:"lifecycle"`
}

type EngagementAnalytics struct {
	ActivityEngagement []Row `json:"activityEngagement"`
	ActiveMembers      []Row `json:"activeMembers"`
	EngagementByType   []Row `json:"engagementByType"`
	MessageEngagement  []Row `json:"messageEngagement"`
}

type WelfareStats struct {
	PendingRequests   int     `json:"pendingRequests"`
	ApprovedRequests  int     `json:"approvedRequests"`
	CompletedRequests int     `json:"completedRequests"`
	TotalDisbursed    float64 `json:"totalDisbursed"`
	RequestsThisMonth int     `json:"requestsThisMonth"`
	ByCategory        []Row   `json:"byCategory"`
}
