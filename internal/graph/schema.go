// Package graph exposes the service as a GraphQL schema.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"runtime/debug"

	"deepthoughts/internal/observability"
	"deepthoughts/internal/service"

	graphql "github.com/graph-gophers/graphql-go"
	gqlotel "github.com/graph-gophers/graphql-go/trace/otel"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema definition served by NewSchema.
func SDL() string {
	return schemaSDL
}

// Options tunes query execution limits.
type Options struct {
	MaxDepth       int
	MaxParallelism int
	Logger         *slog.Logger
}

// NewSchema parses the embedded SDL against a resolver backed by svc.
func NewSchema(svc *service.Service, opts Options) (*graphql.Schema, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	schemaOpts := []graphql.SchemaOpt{
		graphql.Logger(panicLogger{logger: logger}),
		graphql.Tracer(&gqlotel.Tracer{Tracer: observability.Tracer}),
	}
	if opts.MaxDepth > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxDepth(opts.MaxDepth))
	}
	if opts.MaxParallelism > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxParallelism(opts.MaxParallelism))
	}

	schema, err := graphql.ParseSchema(schemaSDL, &Resolver{svc: svc, logger: logger}, schemaOpts...)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}
	return schema, nil
}

// panicLogger reports resolver panics through slog instead of the standard
// logger.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value interface{}) {
	l.logger.ErrorContext(ctx, "graphql resolver panic",
		slog.Any("panic", value),
		slog.String("stack", string(debug.Stack())),
	)
}
