package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/prpo_backend/appctx"
	"github.com/google/uuid"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyDocumentType  = appctx.ContextKeyDocumentType
	ContextKeyBatchLabel    = appctx.ContextKeyBatchLabel
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// WithNewCorrelationId tags ctx with a fresh correlation id unless it already has one.
func WithNewCorrelationId(ctx context.Context) (context.Context, string) {
	if id, ok := GetCorrelationIdFromContext(ctx); ok && id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return SetCorrelationIdInContext(ctx, id), id
}

func GetDocumentTypeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyDocumentType)
}

func SetDocumentTypeInContext(ctx context.Context, documentType string) context.Context {
	return appctx.Set(ctx, ContextKeyDocumentType, documentType)
}

func GetBatchLabelFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyBatchLabel)
}

func SetBatchLabelInContext(ctx context.Context, label string) context.Context {
	return appctx.Set(ctx, ContextKeyBatchLabel, label)
}
