package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

func newMemberService() (*MemberService, *mockMembers) {
	members := &mockMembers{}
	return &MemberService{Members: members, Validator: testValidator, Log: testLog, Now: clock}, members
}

func TestMemberCreateDefaults(t *testing.T) {
	svc, members := newMemberService()
	ctx := context.Background()

	members.On("ExistsByEmail", ctx, "org-1", "grace@example.com", "").Return(false, nil)
	members.On("Create", ctx, mock.AnythingOfType("*model.Member")).
		Run(func(args mock.Arguments) { args.Get(1).(*model.Member).ID = "m1" }).
		Return(nil)
	members.On("GetByID", ctx, "m1").Return(&model.Member{ID: "m1", OrganizationID: "org-1"}, nil)

	_, err := svc.Create(ctx, leader(), MemberInput{FirstName: " Grace ", LastName: "Hopper", Email: "Grace@Example.com"})
	require.NoError(t, err)

	created := members.Calls[1].Arguments.Get(1).(*model.Member)
	assert.Equal(t, "Grace", created.FirstName)
	assert.Equal(t, model.MemberTypeRegular, created.MemberType)
	assert.Equal(t, model.MemberStatusActive, created.Status)
	require.NotNil(t, created.MemberSince)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), *created.MemberSince)
	assert.Equal(t, "grace@example.com", *created.Email)
	assert.Nil(t, created.Phone)
	assert.NotNil(t, created.Tags)
}

func TestMemberCreateRejectsDuplicates(t *testing.T) {
	svc, members := newMemberService()
	ctx := context.Background()

	members.On("ExistsByEmail", ctx, "org-1", "a@example.com", "").Return(true, nil)
	_, err := svc.Create(ctx, leader(), MemberInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	assert.Equal(t, http.StatusConflict, appErrors.StatusOf(err))

	members.On("ExistsByPhone", ctx, "org-1", "+254700000001", "").Return(true, nil)
	_, err = svc.Create(ctx, leader(), MemberInput{FirstName: "A", LastName: "B", Phone: "+254700000001"})
	assert.EqualError(t, err, "Member with this phone number already exists")

	members.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMemberPermissions(t *testing.T) {
	svc, members := newMemberService()
	ctx := context.Background()

	_, err := svc.List(ctx, member(), MemberQuery{Page: NewPage(1, 20)})
	assert.Equal(t, http.StatusForbidden, appErrors.StatusOf(err))

	_, err = svc.Create(ctx, volunteer(), MemberInput{FirstName: "A", LastName: "B"})
	assert.Equal(t, http.StatusForbidden, appErrors.StatusOf(err))

	assert.EqualError(t, svc.Delete(ctx, leader(), "m1"), "Only admins can delete members")

	members.On("GetByID", ctx, "m-other").Return(&model.Member{ID: "m-other", OrganizationID: "org-2"}, nil)
	_, err = svc.Get(ctx, volunteer(), "m-other")
	assert.Equal(t, http.StatusForbidden, appErrors.StatusOf(err))

	members.On("GetByID", ctx, "m1").Return(&model.Member{ID: "m1", OrganizationID: "org-1"}, nil)
	members.On("Delete", ctx, "m1").Return(nil).Once()
	require.NoError(t, svc.Delete(ctx, admin(), "m1"))
}

func TestMemberListFilters(t *testing.T) {
	svc, members := newMemberService()
	ctx := context.Background()

	members.On("List", ctx, model.MemberFilter{OrganizationID: "org-1", Search: "smith", Status: "active"}, 20, 10).
		Return([]*model.Member{{ID: "m1"}}, 11, nil)
	res, err := svc.List(ctx, volunteer(), MemberQuery{Search: " smith ", Status: "active", OrganizationID: "org-2", Page: NewPage(3, 10)})
	require.NoError(t, err)
	assert.Equal(t, 11, res.Total)
	members.AssertExpectations(t)

	_, err = svc.List(ctx, orphan(), MemberQuery{Page: NewPage(1, 20)})
	assert.EqualError(t, err, "Organization ID is required")
}

func TestMemberUpdate(t *testing.T) {
	svc, members := newMemberService()
	ctx := context.Background()
	members.On("GetByID", ctx, "m1").Return(&model.Member{ID: "m1", OrganizationID: "org-1"}, nil)

	members.On("ExistsByEmail", ctx, "org-1", "taken@example.com", "m1").Return(true, nil)
	_, err := svc.Update(ctx, leader(), "m1", MemberPatch{Email: sptr("Taken@example.com")})
	assert.Equal(t, http.StatusConflict, appErrors.StatusOf(err))

	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	members.On("Update", ctx, "m1", mock.MatchedBy(func(u model.MemberUpdate) bool {
		return u.DateOfBirth != nil && u.DateOfBirth.Equal(dob) && u.Status != nil && *u.Status == "inactive"
	})).Return(nil)
	_, err = svc.Update(ctx, leader(), "m1", MemberPatch{DateOfBirth: sptr("1990-05-17"), Status: sptr("inactive")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, leader(), "m1", MemberPatch{Status: sptr("missing")})
	assert.Error(t, err)
}

func TestMemberRejectsImpossibleDates(t *testing.T) {
	svc, members := newMemberService()
	ctx := context.Background()

	_, err := svc.Create(ctx, leader(), MemberInput{FirstName: "A", LastName: "B", DateOfBirth: "1990-13-45"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dateOfBirth")

	_, err = svc.Create(ctx, leader(), MemberInput{FirstName: "A", LastName: "B", MemberSince: "2020-02-31"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memberSince")

	_, err = svc.Update(ctx, leader(), "m1", MemberPatch{DateOfBirth: sptr("2021-02-29")})
	require.Error(t, err)

	members.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	members.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestParseDateSurfacesBadRequest(t *testing.T) {
	_, err := parseDate("memberSince", "2020-02-31")
	assert.Equal(t, http.StatusBadRequest, appErrors.StatusOf(err))
	assert.EqualError(t, err, "memberSince must be a date in YYYY-MM-DD format")

	d, err := parseDate("memberSince", "")
	assert.NoError(t, err)
	assert.Nil(t, d)
}
