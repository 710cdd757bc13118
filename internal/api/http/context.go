package http

import (
	"context"

	"evently-backend/internal/security"
)

type contextKey string

const claimsContextKey contextKey = "user_claims"

// WithClaims stores the authenticated caller on ctx.
func WithClaims(ctx context.Context, claims *security.UserClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the caller placed on ctx by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*security.UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*security.UserClaims)
	return claims, ok && claims != nil
}
