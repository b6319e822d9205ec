package auth

import "context"

const RoleAdmin = "admin"

// Identity is the caller as asserted by the identity provider's token.
type Identity struct {
	UserID int64    `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// UserID returns the authenticated user's id, or false when the request
// did not pass through the auth middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := FromContext(ctx)
	if !ok || id.UserID == 0 {
		return 0, false
	}
	return id.UserID, true
}

// HasRole is the only authorization check in the service.
func HasRole(id Identity, role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}
