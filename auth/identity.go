package auth

import (
	"context"

	"github.com/jrsteele09/go-session-server/token"
)

// Identity is the authenticated principal of a single request
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (i Identity) HasRole(role string) bool {
	return i.Role == role
}

func identityFromClaims(claims *token.Claims) Identity {
	return Identity{
		UserID: claims.Subject,
		Role:   claims.Role,
		Email:  claims.Email,
		Name:   claims.Name,
	}
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the identity
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity attached by the authentication
// middleware. ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (identity Identity, ok bool) {
	identity, ok = ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
