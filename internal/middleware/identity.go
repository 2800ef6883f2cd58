package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// UnknownIdentity is the fallback when no network address is resolvable.
const UnknownIdentity = "unknown"

type identityKey struct{}

// Identity is a middleware that resolves the caller's voter identity and
// stores it in the request context. Resolution order: first hop of
// X-Forwarded-For, X-Real-IP, the connection's peer address, then "unknown".
// The same identity keys both rate limiting and duplicate-vote suppression,
// so the fallback must come from the transport, never from a header the
// client controls.
func Identity(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		identity := resolveIdentity(ctx)

		newCtx := ContextWithIdentity(ctx.Context(), identity)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

// ContextWithIdentity adds a voter identity to the context.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext extracts the voter identity from the context, falling
// back to "unknown".
func IdentityFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(identityKey{}).(string); ok && v != "" {
		return v
	}

	return UnknownIdentity
}

func resolveIdentity(ctx huma.Context) string {
	// X-Forwarded-For may contain multiple hops; the first is the client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if addr == "" {
		return UnknownIdentity
	}

	if ip, _, err := net.SplitHostPort(addr); err == nil {
		return ip
	}

	return addr
}
