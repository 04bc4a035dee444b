// internal/auth/principal.go
package auth

import "context"

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID         string
	Email          string
	Role           string
	OrganizationID string
}

func (p Principal) Can(permission string) bool {
	return HasPermission(p.Role, permission)
}

func (p Principal) IsAdmin() bool {
	return IsAdmin(p.Role)
}

// TargetOrganization resolves which organization a request operates on:
// admins may name another organization, everyone else is pinned to their own.
func (p Principal) TargetOrganization(requested string) string {
	if p.IsAdmin() && requested != "" {
		return requested
	}
	return p.OrganizationID
}

// CanAccessOrganization is true for admins or when orgID is the caller's own.
func (p Principal) CanAccessOrganization(orgID string) bool {
	return p.IsAdmin() || orgID == p.OrganizationID
}

// CanModifyOwned allows the owner of a resource or an admin.
func (p Principal) CanModifyOwned(ownerID string) bool {
	return p.IsAdmin() || (ownerID != "" && ownerID == p.UserID)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func FromClaims(c *Claims) Principal {
	return Principal{
		UserID:         c.UserID,
		Email:          c.Email,
		Role:           c.Role,
		OrganizationID: c.OrganizationID,
	}
}
