// Package repository provides the data access layer behind the resolvers.
package repository

import (
	"context"

	"deepthoughts/internal/cache"
	"deepthoughts/internal/models"
	"deepthoughts/internal/observability"

	"gorm.io/gorm"
)

// ThoughtFilter narrows FindThoughts. The zero value matches every thought.
type ThoughtFilter struct {
	Username string
}

// Store is the persistence contract the resolvers depend on. Lookups return
// (nil, nil) when the record does not exist; writes that reference a missing
// record return a NOT_FOUND AppError.
type Store interface {
	FindUsers(ctx context.Context) ([]models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	// FindUserCredentials is the only lookup that loads the password hash.
	FindUserCredentials(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	FindThoughts(ctx context.Context, filter ThoughtFilter, newestFirst bool) ([]models.Thought, error)
	FindThoughtByID(ctx context.Context, id uint) (*models.Thought, error)
	CreateThought(ctx context.Context, thought *models.Thought) error
	AppendReactionToThought(ctx context.Context, thoughtID uint, reaction models.Reaction) (*models.Thought, error)

	AddFriendEdge(ctx context.Context, userID, friendID uint) (*models.User, error)
	AppendThoughtRefToUser(ctx context.Context, userID, thoughtID uint) error

	// Transaction runs fn against a Store bound to a single database
	// transaction. Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db    *gorm.DB
	cache *cache.Cache

	// pending collects profile invalidations while inside a transaction;
	// they are flushed once the outermost transaction commits.
	pending *[]uint
}

// NewStore returns a GORM-backed Store. c may be nil to disable profile
// caching.
func NewStore(db *gorm.DB, c *cache.Cache) Store {
	return &gormStore{db: db, cache: c}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	var pending []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reads inside the transaction bypass the cache so uncommitted rows
		// never get written back to Redis.
		return fn(&gormStore{db: tx, pending: &pending})
	})
	if err != nil {
		return internal(err)
	}

	for _, id := range pending {
		s.invalidateUser(ctx, id)
	}
	return nil
}

func (s *gormStore) invalidateUser(ctx context.Context, id uint) {
	if s.pending != nil {
		*s.pending = append(*s.pending, id)
		return
	}
	s.cache.InvalidateUser(ctx, id)
}

// observe opens a span and latency timer around a store call. The returned
// func is deferred with a pointer to the call's named error result.
func observe(ctx context.Context, method, table string) (context.Context, func(*error)) {
	ctx, span := observability.StartStoreSpan(ctx, method, table)
	track := observability.TrackQuery(method, table)
	return ctx, func(errp *error) {
		track()
		observability.EndSpan(span, *errp)
	}
}

func byCreation(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
