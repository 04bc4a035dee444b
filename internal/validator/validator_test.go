package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerInput struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	DisplayName string  `json:"displayName" validate:"required"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,dateformat"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	Role        string  `json:"role" validate:"omitempty,oneof=admin member"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()
	bad := "14/03/1990"
	err := v.Validate(registerInput{Email: "nope", Password: "123", DateOfBirth: &bad, Role: "pastor"})
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)

	byField := map[string]FieldError{}
	for _, fe := range errs {
		byField[fe.Field] = fe
	}
	assert.Equal(t, "email must be a valid email address", byField["email"].Message)
	assert.Equal(t, "password must be at least 6 characters", byField["password"].Message)
	assert.Equal(t, "displayName is required", byField["displayName"].Message)
	assert.Equal(t, "dateOfBirth must be in YYYY-MM-DD format", byField["dateOfBirth"].Message)
	assert.Equal(t, "role must be one of: admin member", byField["role"].Message)
}

func TestValidatePasses(t *testing.T) {
	v := New()
	dob := "1990-03-14"
	phone := "+254 700 000001"
	assert.NoError(t, v.Validate(registerInput{
		Email:       "grace@example.com",
		Password:    "secret1",
		DisplayName: "Grace",
		DateOfBirth: &dob,
		Phone:       &phone,
	}))
}

func TestDateFormatRejectsImpossibleDates(t *testing.T) {
	v := New()
	for _, bad := range []string{"1990-13-45", "2020-02-31", "2021-02-29", "1990-3-14"} {
		d := bad
		err := v.Validate(registerInput{Email: "grace@example.com", Password: "secret1", DisplayName: "Grace", DateOfBirth: &d})
		assert.Error(t, err, bad)
	}

	leap := "2024-02-29"
	assert.NoError(t, v.Validate(registerInput{Email: "grace@example.com", Password: "secret1", DisplayName: "Grace", DateOfBirth: &leap}))
}
