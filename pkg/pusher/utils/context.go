package utils

import (
	"context"
)

type contextKey string

const tokenNameKey contextKey = "token-name"

// WithTokenName returns a copy of ctx carrying the name of the API key used by the request.
func WithTokenName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, tokenNameKey, name)
}

// TokenNameFromContext returns a token name from a request context.
// Can be added by auth middleware.
func TokenNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(tokenNameKey).(string)
	return name
}
