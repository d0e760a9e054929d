package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// It lives in its own package so models and config never need to import utils.
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeySubject       = ContextKey("Subject")
	ContextKeyUsername      = ContextKey("Username")
	ContextKeyRole          = ContextKey("Role")
	ContextKeyCorrelationId = ContextKey("CorrelationId")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
