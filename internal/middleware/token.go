package middleware

import "context"

type tokenKey struct{}

// WithToken attaches the caller's raw bearer token to the context so upstream
// clients can forward it instead of reaching into shared session state.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by AuthMiddleware, or "" when
// the request was not authenticated.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
