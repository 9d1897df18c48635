// Package auth turns bearer credentials into a typed, verified Identity.
package auth

import (
	"context"
	"slices"
)

// Identity is the verified payload of an access token. Handlers receive it
// from the request context and pass it explicitly to the user resolver.
type Identity struct {
	// Subject is the identity provider's stable user identifier (the "sub" claim).
	Subject     string
	Email       string
	Name        string
	Permissions []string
	Roles       []string
}

// HasPermissions reports whether every one of perms was granted.
func (i *Identity) HasPermissions(perms ...string) bool {
	for _, p := range perms {
		if !slices.Contains(i.Permissions, p) {
			return false
		}
	}
	return true
}

// HasAnyRole reports whether at least one of roles was granted.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(i.Roles, r) {
			return true
		}
	}
	return false
}

type identityKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the Identity stored by NewContext.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
