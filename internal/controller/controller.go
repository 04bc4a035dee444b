// Package controller adapts HTTP requests to service calls and writes the
// JSON envelopes.
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/response"
	"github.com/unclebandit/churchcare-backend/internal/service"
)

const maxBodyBytes = 1 << 20

// listData is the data payload of every paginated endpoint.
type listData[T any] struct {
	Items      []T                 `json:"items"`
	Pagination response.Pagination `json:"pagination"`
}

func paginated[T any](l *service.List[T]) listData[T] {
	items := l.Items
	if items == nil {
		items = []T{}
	}
	return listData[T]{Items: items, Pagination: response.NewPagination(l.Page.Page, l.Page.Limit, l.Total)}
}

// principal returns the authenticated caller. The auth middleware guarantees
// it on protected routes.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
	}
	return p, ok
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.BadRequest("Invalid request body")
	}
	return nil
}

func page(r *http.Request) service.Page {
	q := r.URL.Query()
	p, _ := strconv.Atoi(q.Get("page"))
	l, _ := strconv.Atoi(q.Get("limit"))
	return service.NewPage(p, l)
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, key string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &v
}

func id(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// handle runs fn with the caller's principal and maps any error.
func handle(log logrus.FieldLogger, fn func(w http.ResponseWriter, r *http.Request, p auth.Principal) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		if err := fn(w, r, p); err != nil {
			response.Error(w, r, log, err)
		}
	}
}

var (
	_ AuthService       = (*service.AuthService)(nil)
	_ UserService       = (*service.UserService)(nil)
	_ MemberService     = (*service.MemberService)(nil)
	_ MessageService    = (*service.MessageService)(nil)
	_ TemplateService   = (*service.TemplateService)(nil)
	_ AutomationService = (*service.AutomationService)(nil)
	_ WelfareService    = (*service.WelfareService)(nil)
	_ AnalyticsService  = (*service.AnalyticsService)(nil)
)
