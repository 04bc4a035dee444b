package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/logging"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 2, Limit: 20, Total: 41, Pages: 3}, NewPagination(2, 20, 41))
	assert.Equal(t, 0, NewPagination(1, 20, 0).Pages)
}

func TestSuccessEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	Created(w, map[string]string{"id": "m1"}, "Member created successfully")

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Member created successfully", body["message"])
	assert.Equal(t, "m1", body["data"].(map[string]any)["id"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestErrorMapping(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/members/1", nil)
	log := logging.Discard()

	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", appErrors.NotFound("Member"), http.StatusNotFound, "Member not found"},
		{"conflict", appErrors.Conflict("Member with this email already exists in this organization"), http.StatusConflict, "Member with this email already exists in this organization"},
		{"validation", validator.ValidationErrors{{Field: "email", Message: "email is required"}}, http.StatusBadRequest, "Validation failed"},
		{"untyped", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
		{"internal", appErrors.Internal(errors.New("boom")), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, r, log, tc.err)
			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.msg, body["error"])
		})
	}
}
