package utils

import (
	"context"

	"github.com/mmdatafocus/sync_backend/appctx"
	"github.com/mmdatafocus/sync_backend/models"
)

var (
	ContextKeySubject       = appctx.ContextKeySubject
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyRole          = appctx.ContextKeyRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetSubjectFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeySubject)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetRoleFromContext(ctx context.Context) (models.Role, bool) {
	v, ok := ctx.Value(ContextKeyRole).(models.Role)
	return v, ok
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetSubjectInContext(ctx context.Context, subject string) context.Context {
	return appctx.Set(ctx, ContextKeySubject, subject)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetRoleInContext(ctx context.Context, role models.Role) context.Context {
	return appctx.Set(ctx, ContextKeyRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
