// Package auth resolves bearer tokens to owner identities.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
)

// ErrInvalidToken is returned when a token is unknown, empty, or malformed.
var ErrInvalidToken = errors.New("auth: invalid token")

// Resolver maps a bearer token to an owner identity.
type Resolver interface {
	// Resolve returns the owner ID for token, or ErrInvalidToken.
	Resolve(ctx context.Context, token string) (string, error)
}

// Compile-time assertion that StaticResolver implements Resolver.
var _ Resolver = (*StaticResolver)(nil)

// StaticResolver resolves tokens from a fixed token-to-owner map, as loaded
// from configuration. Safe for concurrent use.
type StaticResolver struct {
	mu     sync.RWMutex
	owners map[string]string
}

// NewStaticResolver creates a resolver over the given token-to-owner map.
func NewStaticResolver(tokens map[string]string) *StaticResolver {
	owners := make(map[string]string, len(tokens))
	for token, owner := range tokens {
		owners[token] = owner
	}
	return &StaticResolver{owners: owners}
}

// Replace swaps the full token set, e.g. after a config reload.
func (r *StaticResolver) Replace(tokens map[string]string) {
	owners := make(map[string]string, len(tokens))
	for token, owner := range tokens {
		owners[token] = owner
	}
	r.mu.Lock()
	r.owners = owners
	r.mu.Unlock()
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	r.mu.RLock()
	owner, ok := r.owners[token]
	r.mu.RUnlock()
	if !ok {
		return "", ErrInvalidToken
	}
	return owner, nil
}

// ownerKey carries the authenticated owner through a request context.
type ownerKey struct{}

// WithOwner returns a context carrying the authenticated owner ID.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner stored by [WithOwner], or the empty string.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// BearerToken extracts the token from an Authorization: Bearer header.
// Returns the empty string when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
