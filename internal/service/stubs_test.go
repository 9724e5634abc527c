package service

import (
	"context"
	"sync"
	"testing"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/events"
	"deepthoughts/internal/models"
	"deepthoughts/internal/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "service-test-secret-0123456789abcdef"

// storeStub records every call; unset functions return zero values.
type storeStub struct {
	mu    sync.Mutex
	calls []string

	findUsersFn               func(context.Context) ([]models.User, error)
	findUserByUsernameFn      func(context.Context, string) (*models.User, error)
	findUserByIDFn            func(context.Context, uint) (*models.User, error)
	findUserCredentialsFn     func(context.Context, string) (*models.User, error)
	createUserFn              func(context.Context, *models.User) error
	findThoughtsFn            func(context.Context, repository.ThoughtFilter, bool) ([]models.Thought, error)
	findThoughtByIDFn         func(context.Context, uint) (*models.Thought, error)
	createThoughtFn           func(context.Context, *models.Thought) error
	appendReactionToThoughtFn func(context.Context, uint, models.Reaction) (*models.Thought, error)
	addFriendEdgeFn           func(context.Context, uint, uint) (*models.User, error)
	appendThoughtRefToUserFn  func(context.Context, uint, uint) error
}

func (s *storeStub) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *storeStub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *storeStub) FindUsers(ctx context.Context) ([]models.User, error) {
	s.record("FindUsers")
	if s.findUsersFn == nil {
		return nil, nil
	}
	return s.findUsersFn(ctx)
}
func (s *storeStub) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.record("FindUserByUsername")
	if s.findUserByUsernameFn == nil {
		return nil, nil
	}
	return s.findUserByUsernameFn(ctx, username)
}
func (s *storeStub) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	s.record("FindUserByID")
	if s.findUserByIDFn == nil {
		return nil, nil
	}
	return s.findUserByIDFn(ctx, id)
}
func (s *storeStub) FindUserCredentials(ctx context.Context, email string) (*models.User, error) {
	s.record("FindUserCredentials")
	if s.findUserCredentialsFn == nil {
		return nil, nil
	}
	return s.findUserCredentialsFn(ctx, email)
}
func (s *storeStub) CreateUser(ctx context.Context, user *models.User) error {
	s.record("CreateUser")
	if s.createUserFn == nil {
		return nil
	}
	return s.createUserFn(ctx, user)
}
func (s *storeStub) FindThoughts(ctx context.Context, filter repository.ThoughtFilter, newestFirst bool) ([]models.Thought, error) {
	s.record("FindThoughts")
	if s.findThoughtsFn == nil {
		return nil, nil
	}
	return s.findThoughtsFn(ctx, filter, newestFirst)
}
func (s *storeStub) FindThoughtByID(ctx context.Context, id uint) (*models.Thought, error) {
	s.record("FindThoughtByID")
	if s.findThoughtByIDFn == nil {
		return nil, nil
	}
	return s.findThoughtByIDFn(ctx, id)
}
func (s *storeStub) CreateThought(ctx context.Context, thought *models.Thought) error {
	s.record("CreateThought")
	if s.createThoughtFn == nil {
		return nil
	}
	return s.createThoughtFn(ctx, thought)
}
func (s *storeStub) AppendReactionToThought(ctx context.Context, thoughtID uint, reaction models.Reaction) (*models.Thought, error) {
	s.record("AppendReactionToThought")
	if s.appendReactionToThoughtFn == nil {
		return nil, nil
	}
	return s.appendReactionToThoughtFn(ctx, thoughtID, reaction)
}
func (s *storeStub) AddFriendEdge(ctx context.Context, userID, friendID uint) (*models.User, error) {
	s.record("AddFriendEdge")
	if s.addFriendEdgeFn == nil {
		return nil, nil
	}
	return s.addFriendEdgeFn(ctx, userID, friendID)
}
func (s *storeStub) AppendThoughtRefToUser(ctx context.Context, userID, thoughtID uint) error {
	s.record("AppendThoughtRefToUser")
	if s.appendThoughtRefToUserFn == nil {
		return nil
	}
	return s.appendThoughtRefToUserFn(ctx, userID, thoughtID)
}
func (s *storeStub) Transaction(_ context.Context, fn func(repository.Store) error) error {
	s.record("Transaction")
	return fn(s)
}

// hasherStub counts Verify calls so the dummy-hash path can be observed.
type hasherStub struct {
	inner    auth.PasswordHasher
	mu       sync.Mutex
	verifies int
}

func (h *hasherStub) Hash(plain string) (string, error) { return h.inner.Hash(plain) }
func (h *hasherStub) Verify(plain, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.inner.Verify(plain, hash)
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *publisherStub) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *publisherStub) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(testSecret)})
	require.NoError(t, err)
	return tokens
}

func newHasher() *hasherStub {
	return &hasherStub{inner: auth.NewBcryptHasher(bcrypt.MinCost)}
}

func asUser(ctx context.Context, id uint, username string) context.Context {
	return auth.WithContext(ctx, auth.Authenticated{Identity: auth.Identity{
		UserID:   id,
		Username: username,
		Email:    username + "@x.com",
	}})
}
