// Package middleware holds the gin middleware shared by all HTTP routes and the
// request-scoped values they place in the request context.
package middleware

import (
	"context"

	sessiondomain "vibhanet-auth/backend/internal/session/domain"
)

type contextKey struct{ name string }

var (
	clientIPKey  = contextKey{"client_ip"}
	principalKey = contextKey{"principal"}
)

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the client IP set by ClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}

// WithPrincipal returns a context carrying the authenticated account.
func WithPrincipal(ctx context.Context, p *sessiondomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal and true if set; otherwise nil, false.
func PrincipalFromContext(ctx context.Context) (*sessiondomain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*sessiondomain.Principal)
	return p, ok && p != nil
}
