package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/logging"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func errorField(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(string)
}

func TestAuthenticator(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	authn := NewAuthenticator(tokens, logging.Discard())

	var seen auth.Principal
	h := authn.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authentication required", errorField(t, w))
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/members", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tokens.Generate("u1", "leader@example.com", auth.RoleMinistryLeader, "org-1")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/members", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", seen.UserID)
		assert.Equal(t, "org-1", seen.OrganizationID)
	})
}

func TestRequirePermission(t *testing.T) {
	h := RequirePermission(auth.PermManageTemplates, auth.PermCreateTemplates)(http.HandlerFunc(okHandler))

	cases := []struct {
		role string
		want int
	}{
		{auth.RoleVolunteer, http.StatusOK},
		{auth.RoleMinistryLeader, http.StatusOK},
		{auth.RoleMember, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/templates", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: "u", Role: tc.role}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.role)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/templates", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORS(t *testing.T) {
	h := NewCORS([]string{"http://localhost:3000"}).Handler(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/members", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/members", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.Discard())
	h := rl.Handler(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/members", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	rl.now = func() time.Time { return time.Now().Add(time.Hour) }
	rl.Cleanup(time.Minute)
	assert.Empty(t, rl.visitors)
}
