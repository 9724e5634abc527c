package auth

import (
	"context"
)

// AuthContext says who, if anyone, is behind a request. It has exactly two
// implementations, Anonymous and Authenticated; the unexported method keeps
// the set closed so a type switch over them is exhaustive.
type AuthContext interface {
	authContext()
}

// Anonymous is the context of a caller without a verified token.
type Anonymous struct{}

// Authenticated is the context of a caller holding a verified token.
type Authenticated struct {
	Identity Identity
}

func (Anonymous) authContext()     {}
func (Authenticated) authContext() {}

// IdentityOf returns the identity behind ac and whether there is one.
func IdentityOf(ac AuthContext) (Identity, bool) {
	switch v := ac.(type) {
	case Authenticated:
		return v.Identity, true
	case *Authenticated:
		if v != nil {
			return v.Identity, true
		}
	}
	return Identity{}, false
}

type ctxKey struct{}

// WithContext stores ac in ctx.
func WithContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the AuthContext stored in ctx, or Anonymous when none
// was stored.
func FromContext(ctx context.Context) AuthContext {
	if ac, ok := ctx.Value(ctxKey{}).(AuthContext); ok && ac != nil {
		return ac
	}
	return Anonymous{}
}
