// Package service holds the business rules behind every endpoint: permission
// checks, organization scoping and input validation.
package service

import (
	"strings"
	"time"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

// Page is a normalized page request.
type Page struct {
	Page  int
	Limit int
}

func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// List is one page of results plus the total row count.
type List[T any] struct {
	Items []T
	Total int
	Page  Page
}

func requirePermission(p auth.Principal, permissions ...string) error {
	if !auth.HasAnyPermission(p.Role, permissions...) {
		return appErrors.Forbidden("")
	}
	return nil
}

// organization resolves the organization a request acts on.
func organization(p auth.Principal, requested string) (string, error) {
	orgID := p.TargetOrganization(requested)
	if orgID == "" {
		return "", appErrors.BadRequest("Organization ID is required")
	}
	return orgID, nil
}

func checkOrganization(p auth.Principal, orgID string) error {
	if !p.CanAccessOrganization(orgID) {
		return appErrors.Forbidden("Access denied to this organization")
	}
	return nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, appErrors.BadRequest(field + " must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func stringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
