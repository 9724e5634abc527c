package auth

import (
	"deepthoughts/internal/models"
)

// RequireAuth runs fn with the caller's identity when ac is Authenticated.
// For Anonymous it returns models.ErrUnauthenticated without calling fn.
func RequireAuth[T any](ac AuthContext, fn func(Identity) (T, error)) (T, error) {
	id, ok := IdentityOf(ac)
	if !ok {
		var zero T
		return zero, models.ErrUnauthenticated
	}
	return fn(id)
}
