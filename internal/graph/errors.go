package graph

import (
	"context"
	"errors"
	"log/slog"

	"deepthoughts/internal/models"
)

// errReadOnly refuses mutations on requests marked read-only (GET).
var errReadOnly = &models.AppError{
	Code:    models.CodeBadRequest,
	Message: "Mutations must be sent with POST",
}

type readOnlyKey struct{}

// WithReadOnly marks ctx so that every mutation field is refused.
func WithReadOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, readOnlyKey{}, true)
}

func isReadOnly(ctx context.Context) bool {
	ro, _ := ctx.Value(readOnlyKey{}).(bool)
	return ro
}

// present turns err into what the client sees. AppErrors keep their code and
// message; anything internal is logged and replaced by a generic error.
func (r *Resolver) present(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return appErr
	}

	r.logger.ErrorContext(ctx, "graphql resolver failed", slog.String("error", err.Error()))
	return &models.AppError{Code: models.CodeInternal, Message: "Internal server error"}
}
