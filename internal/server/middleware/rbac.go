package middleware

import "context"

// Role constants define the supported actor roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// HasRole reports whether the authenticated actor holds one of roles.
func HasRole(ctx context.Context, roles ...string) bool {
	a, ok := ActorFromContext(ctx)
	if !ok || a.Role == "" {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanWrite reports whether the caller may mutate workspace state. Anonymous
// requests only reach the API when authentication is disabled.
func CanWrite(ctx context.Context) bool {
	if _, ok := ActorFromContext(ctx); !ok {
		return true
	}
	return HasRole(ctx, RoleAdmin, RoleMember)
}
