// Package service implements the GraphQL operations on top of the store,
// enforcing the authentication gate for mutations that act as the caller.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/events"
	"deepthoughts/internal/models"
	"deepthoughts/internal/observability"
	"deepthoughts/internal/repository"
)

// TokenSigner issues tokens for a freshly authenticated identity.
type TokenSigner interface {
	Sign(id auth.Identity) (string, error)
}

// EventPublisher announces activity. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// Deps are the collaborators of a Service. Events and Logger are optional.
type Deps struct {
	Store  repository.Store
	Tokens TokenSigner
	Hasher auth.PasswordHasher
	Events EventPublisher
	Logger *slog.Logger
}

// Service holds every query and mutation handler.
type Service struct {
	store  repository.Store
	tokens TokenSigner
	hasher auth.PasswordHasher
	events EventPublisher
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// New returns a Service wired to d.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:  d.Store,
		tokens: d.Tokens,
		hasher: d.Hasher,
		events: d.Events,
		logger: logger,
	}
}

// AuthPayload is returned by signup and login.
type AuthPayload struct {
	Token string
	User  *models.User
}

// gated runs fn as the authenticated caller. Anonymous callers are counted
// and rejected before fn can touch the store.
func gated[T any](ctx context.Context, operation string, fn func(auth.Identity) (T, error)) (T, error) {
	ac := auth.FromContext(ctx)
	if _, ok := auth.IdentityOf(ac); !ok {
		observability.GateRejections.WithLabelValues(operation).Inc()
	}
	return auth.RequireAuth(ac, fn)
}

// instrument opens a span and latency timer for operation. The returned func
// is deferred with a pointer to the operation's named error result.
func instrument(ctx context.Context, operation string) (context.Context, func(*error)) {
	ctx, span := observability.StartOperation(ctx, operation)
	track := observability.TrackOperation(operation)
	return ctx, func(errp *error) {
		code := "OK"
		if *errp != nil {
			code = models.CodeOf(*errp)
		}
		track(code)
		observability.EndSpan(span, *errp)
	}
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			slog.String("type", evt.Type), slog.String("error", err.Error()))
	}
}

// parseID accepts the decimal ids the API hands out. Anything else can never
// match a record.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func isUnauthenticated(err error) bool {
	return errors.Is(err, models.ErrUnauthenticated)
}
