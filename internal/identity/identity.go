// Package identity resolves the caller of an HTTP request to a stable owner
// key. Resolution happens once per request in middleware; everything
// downstream reads the result from the request context.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// AnonymousKey is the owner bucket used for unauthenticated collection reads.
const AnonymousKey = "anonymous"

// Identity is the resolved caller of a request.
type Identity struct {
	Key       string `json:"key"`
	Anonymous bool   `json:"anonymous"`
}

// Anonymous returns the shared anonymous identity.
func Anonymous() Identity {
	return Identity{Key: AnonymousKey, Anonymous: true}
}

// Provider resolves a request to an identity. Implementations must not keep
// per-request state; a request without credentials resolves to the anonymous
// identity, and invalid credentials are an error.
type Provider interface {
	Resolve(r *http.Request) (Identity, error)
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity adds an identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext retrieves the identity resolved for this request.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// TokenProvider authenticates bearer tokens against a static token->user map.
type TokenProvider struct {
	tokens map[string]string
}

// NewTokenProvider creates a provider over the configured token map.
func NewTokenProvider(tokens map[string]string) *TokenProvider {
	return &TokenProvider{tokens: tokens}
}

// Resolve implements Provider. The token is taken from the Authorization
// header, with a query-parameter fallback for WebSocket connections.
func (p *TokenProvider) Resolve(r *http.Request) (Identity, error) {
	token := r.Header.Get("Authorization")
	if strings.HasPrefix(token, "Bearer ") {
		token = strings.TrimPrefix(token, "Bearer ")
	} else {
		token = r.URL.Query().Get("token")
	}

	if token == "" {
		return Anonymous(), nil
	}

	user, ok := p.tokens[token]
	if !ok {
		return Identity{}, fmt.Errorf("invalid token")
	}
	return Identity{Key: user}, nil
}
