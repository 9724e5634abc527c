package auth

import (
	"errors"
	"testing"

	"deepthoughts/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRequireAuth_Anonymous(t *testing.T) {
	called := false
	got, err := RequireAuth(Anonymous{}, func(Identity) (string, error) {
		called = true
		return "ran", nil
	})

	assert.False(t, called)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, models.CodeUnauthenticated, models.CodeOf(err))
}

func TestRequireAuth_Authenticated(t *testing.T) {
	ac := Authenticated{Identity: Identity{UserID: 9, Username: "bo"}}

	got, err := RequireAuth(ac, func(id Identity) (string, error) {
		return id.Username, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "bo", got)
}

func TestRequireAuth_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	ac := Authenticated{Identity: Identity{UserID: 9, Username: "bo"}}

	_, err := RequireAuth(ac, func(Identity) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("secret1")
	assert.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, h.Verify("secret1", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("secret1", "not-a-hash"))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, 10, NewBcryptHasher(0).Cost)
	assert.Equal(t, 10, NewBcryptHasher(99).Cost)
	assert.Equal(t, 6, NewBcryptHasher(6).Cost)
}
