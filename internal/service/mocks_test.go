package service

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/queue"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

var (
	fixedNow = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	clock    = func() time.Time { return fixedNow }
	testLog  = func() logrus.FieldLogger {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}()
	testValidator = validator.New()
)

func admin() auth.Principal {
	return auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin, OrganizationID: "org-1"}
}

func leader() auth.Principal {
	return auth.Principal{UserID: "leader-1", Role: auth.RoleMinistryLeader, OrganizationID: "org-1"}
}

func volunteer() auth.Principal {
	return auth.Principal{UserID: "vol-1", Role: auth.RoleVolunteer, OrganizationID: "org-1"}
}

func member() auth.Principal {
	return auth.Principal{UserID: "mem-1", Role: auth.RoleMember, OrganizationID: "org-1"}
}

func sptr(s string) *string { return &s }

// list returns the first two results of a mocked List call.
func list[T any](args mock.Arguments) ([]T, int, error) {
	var items []T
	if v := args.Get(0); v != nil {
		items = v.([]T)
	}
	return items, args.Int(1), args.Error(2)
}

func one[T any](args mock.Arguments) (*T, error) {
	var v *T
	if x := args.Get(0); x != nil {
		v = x.(*T)
	}
	return v, args.Error(1)
}

func many[T any](args mock.Arguments) ([]T, error) {
	var items []T
	if v := args.Get(0); v != nil {
		items = v.([]T)
	}
	return items, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUsers) CreateWithOrganization(ctx context.Context, o *model.Organization, u *model.User) error {
	return m.Called(ctx, o, u).Error(0)
}
func (m *mockUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return one[model.User](m.Called(ctx, id))
}
func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return one[model.User](m.Called(ctx, email))
}
func (m *mockUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *mockUsers) List(ctx context.Context, f model.UserFilter, offset, limit int) ([]*model.User, int, error) {
	return list[*model.User](m.Called(ctx, f, offset, limit))
}
func (m *mockUsers) Update(ctx context.Context, id string, upd model.UserUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockUsers) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockUsers) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockOrgs struct{ mock.Mock }

func (m *mockOrgs) Create(ctx context.Context, o *model.Organization) error {
	return m.Called(ctx, o).Error(0)
}
func (m *mockOrgs) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	return one[model.Organization](m.Called(ctx, id))
}

type mockMembers struct{ mock.Mock }

func (m *mockMembers) List(ctx context.Context, f model.MemberFilter, offset, limit int) ([]*model.Member, int, error) {
	return list[*model.Member](m.Called(ctx, f, offset, limit))
}
func (m *mockMembers) GetByID(ctx context.Context, id string) (*model.Member, error) {
	return one[model.Member](m.Called(ctx, id))
}
func (m *mockMembers) Create(ctx context.Context, mem *model.Member) error {
	return m.Called(ctx, mem).Error(0)
}
func (m *mockMembers) Update(ctx context.Context, id string, upd model.MemberUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockMembers) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockMembers) ExistsByEmail(ctx context.Context, orgID, email, excludeID string) (bool, error) {
	args := m.Called(ctx, orgID, email, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *mockMembers) ExistsByPhone(ctx context.Context, orgID, phone, excludeID string) (bool, error) {
	args := m.Called(ctx, orgID, phone, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *mockMembers) AppendNote(ctx context.Context, id, note string) error {
	return m.Called(ctx, id, note).Error(0)
}
func (m *mockMembers) ListActive(ctx context.Context, orgID string) ([]*model.Member, error) {
	return many[*model.Member](m.Called(ctx, orgID))
}
func (m *mockMembers) ListActiveByIDs(ctx context.Context, orgID string, ids []string) ([]*model.Member, error) {
	return many[*model.Member](m.Called(ctx, orgID, ids))
}
func (m *mockMembers) FindByBirthday(ctx context.Context, orgID string, month time.Month, day int) ([]*model.Member, error) {
	return many[*model.Member](m.Called(ctx, orgID, month, day))
}
func (m *mockMembers) FindByAnniversary(ctx context.Context, orgID string, month time.Month, day, beforeYear int) ([]*model.Member, error) {
	return many[*model.Member](m.Called(ctx, orgID, month, day, beforeYear))
}
func (m *mockMembers) FindJoinedOn(ctx context.Context, orgID string, date time.Time) ([]*model.Member, error) {
	return many[*model.Member](m.Called(ctx, orgID, date))
}
func (m *mockMembers) FindAbsentSince(ctx context.Context, orgID string, since time.Time) ([]*model.Member, error) {
	return many[*model.Member](m.Called(ctx, orgID, since))
}

type mockMessages struct{ mock.Mock }

func (m *mockMessages) List(ctx context.Context, f model.MessageFilter, offset, limit int) ([]*model.Message, int, error) {
	return list[*model.Message](m.Called(ctx, f, offset, limit))
}
func (m *mockMessages) GetByID(ctx context.Context, id string) (*model.Message, error) {
	return one[model.Message](m.Called(ctx, id))
}
func (m *mockMessages) Create(ctx context.Context, msg *model.Message, recipients []*model.MessageRecipient) error {
	return m.Called(ctx, msg, recipients).Error(0)
}
func (m *mockMessages) Update(ctx context.Context, id string, upd model.MessageUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockMessages) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockMessages) CountByTemplate(ctx context.Context, templateID string) (int, error) {
	args := m.Called(ctx, templateID)
	return args.Int(0), args.Error(1)
}
func (m *mockMessages) ListRecipients(ctx context.Context, messageID string) ([]*model.MessageRecipient, error) {
	return many[*model.MessageRecipient](m.Called(ctx, messageID))
}
func (m *mockMessages) GetRecipient(ctx context.Context, id string) (*model.MessageRecipient, error) {
	return one[model.MessageRecipient](m.Called(ctx, id))
}
func (m *mockMessages) PendingRecipientIDs(ctx context.Context, messageID string) ([]string, error) {
	return many[string](m.Called(ctx, messageID))
}
func (m *mockMessages) MarkSending(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}
func (m *mockMessages) UpdateRecipientStatus(ctx context.Context, id, status, rendered, errMsg string, at time.Time) error {
	return m.Called(ctx, id, status, rendered, errMsg, at).Error(0)
}
func (m *mockMessages) FinalizeIfComplete(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}
func (m *mockMessages) ListDueScheduled(ctx context.Context, now time.Time) ([]*model.Message, error) {
	return many[*model.Message](m.Called(ctx, now))
}
func (m *mockMessages) ListStalledSending(ctx context.Context, before time.Time) ([]*model.Message, error) {
	return many[*model.Message](m.Called(ctx, before))
}
func (m *mockMessages) TouchSending(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockTemplates struct{ mock.Mock }

func (m *mockTemplates) List(ctx context.Context, f model.TemplateFilter, offset, limit int) ([]*model.MessageTemplate, int, error) {
	return list[*model.MessageTemplate](m.Called(ctx, f, offset, limit))
}
func (m *mockTemplates) GetByID(ctx context.Context, id string) (*model.MessageTemplate, error) {
	return one[model.MessageTemplate](m.Called(ctx, id))
}
func (m *mockTemplates) Create(ctx context.Context, t *model.MessageTemplate) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTemplates) Update(ctx context.Context, id string, upd model.TemplateUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockTemplates) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockTemplates) NameExists(ctx context.Context, orgID, name, excludeID string) (bool, error) {
	args := m.Called(ctx, orgID, name, excludeID)
	return args.Bool(0), args.Error(1)
}

type mockRules struct{ mock.Mock }

func (m *mockRules) List(ctx context.Context, f model.AutomationFilter, offset, limit int) ([]*model.AutomationRule, int, error) {
	return list[*model.AutomationRule](m.Called(ctx, f, offset, limit))
}
func (m *mockRules) GetByID(ctx context.Context, id string) (*model.AutomationRule, error) {
	return one[model.AutomationRule](m.Called(ctx, id))
}
func (m *mockRules) Create(ctx context.Context, rule *model.AutomationRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockRules) Update(ctx context.Context, id string, upd model.AutomationUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockRules) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRules) ListActive(ctx context.Context) ([]*model.AutomationRule, error) {
	return many[*model.AutomationRule](m.Called(ctx))
}
func (m *mockRules) CreateLogs(ctx context.Context, logs []*model.AutomationLog) error {
	return m.Called(ctx, logs).Error(0)
}
func (m *mockRules) ListLogs(ctx context.Context, ruleID string, offset, limit int) ([]*model.AutomationLog, int, error) {
	return list[*model.AutomationLog](m.Called(ctx, ruleID, offset, limit))
}

type mockWelfare struct{ mock.Mock }

func (m *mockWelfare) List(ctx context.Context, f model.WelfareFilter, offset, limit int) ([]*model.WelfareRequest, int, error) {
	return list[*model.WelfareRequest](m.Called(ctx, f, offset, limit))
}
func (m *mockWelfare) GetByID(ctx context.Context, id string) (*model.WelfareRequest, error) {
	return one[model.WelfareRequest](m.Called(ctx, id))
}
func (m *mockWelfare) Create(ctx context.Context, w *model.WelfareRequest) error {
	return m.Called(ctx, w).Error(0)
}
func (m *mockWelfare) Update(ctx context.Context, id string, upd model.WelfareUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockWelfare) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockWelfare) Transition(ctx context.Context, id string, t model.WelfareTransition) error {
	return m.Called(ctx, id, t).Error(0)
}

type mockAnalytics struct{ mock.Mock }

func (m *mockAnalytics) Overview(ctx context.Context, orgID string) (*model.OverviewAnalytics, error) {
	return one[model.OverviewAnalytics](m.Called(ctx, orgID))
}
func (m *mockAnalytics) Members(ctx context.Context, orgID string, dr model.DateRange) (*model.MemberAnalytics, error) {
	return one[model.MemberAnalytics](m.Called(ctx, orgID, dr))
}
func (m *mockAnalytics) Messages(ctx context.Context, orgID string, dr model.DateRange) (*model.MessageAnalytics, error) {
	return one[model.MessageAnalytics](m.Called(ctx, orgID, dr))
}
func (m *mockAnalytics) Growth(ctx context.Context, orgID string, dr model.DateRange) (*model.GrowthAnalytics, error) {
	return one[model.GrowthAnalytics](m.Called(ctx, orgID, dr))
}
func (m *mockAnalytics) Engagement(ctx context.Context, orgID string, dr model.DateRange) (*model.EngagementAnalytics, error) {
	return one[model.EngagementAnalytics](m.Called(ctx, orgID, dr))
}
func (m *mockAnalytics) Welfare(ctx context.Context, orgID string, now time.Time) (*model.WelfareStats, error) {
	return one[model.WelfareStats](m.Called(ctx, orgID, now))
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) Publish(ctx context.Context, topic string, payload any) error {
	return m.Called(ctx, topic, payload).Error(0)
}
func (m *mockQueue) Subscribe(topic string, handler queue.Handler) error {
	return m.Called(topic, handler).Error(0)
}
func (m *mockQueue) Close() error { return m.Called().Error(0) }

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, msg Outgoing) error {
	return m.Called(ctx, msg).Error(0)
}

var (
	_ repository.UserRepositoryInterface         = (*mockUsers)(nil)
	_ repository.OrganizationRepositoryInterface = (*mockOrgs)(nil)
	_ repository.MemberRepositoryInterface       = (*mockMembers)(nil)
	_ repository.MessageRepositoryInterface      = (*mockMessages)(nil)
	_ repository.TemplateRepositoryInterface     = (*mockTemplates)(nil)
	_ repository.AutomationRepositoryInterface   = (*mockRules)(nil)
	_ repository.WelfareRepositoryInterface      = (*mockWelfare)(nil)
	_ repository.AnalyticsRepositoryInterface    = (*mockAnalytics)(nil)
	_ queue.Queue                                = (*mockQueue)(nil)
	_ Sender                                     = (*mockSender)(nil)
)

// orphan is a caller without an organization.
func orphan() auth.Principal {
	return auth.Principal{UserID: "loner", Role: auth.RoleVolunteer}
}

// otherVolunteer is a volunteer who did not create the fixtures.
func otherVolunteer() auth.Principal {
	return auth.Principal{UserID: "vol-2", Role: auth.RoleVolunteer, OrganizationID: "org-1"}
}
