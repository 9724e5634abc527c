package middleware

import (
	"deepthoughts/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthContextLocal is the fiber locals key holding the resolved AuthContext.
const AuthContextLocal = "authContext"

// ContextResolver derives the AuthContext from a raw Authorization header.
type ContextResolver interface {
	Resolve(rawAuthHeader string) auth.AuthContext
}

// AuthContext resolves the caller's AuthContext exactly once per request and
// threads it through both fiber locals and the request context. It never
// rejects a request: a missing or bad token just yields Anonymous, and the
// per-operation gates decide what an anonymous caller may do.
func AuthContext(resolver ContextResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, done := c.Locals(AuthContextLocal).(auth.AuthContext); done {
			return c.Next()
		}

		ac := resolver.Resolve(c.Get(fiber.HeaderAuthorization))
		c.Locals(AuthContextLocal, ac)
		c.SetUserContext(auth.WithContext(c.UserContext(), ac))
		return c.Next()
	}
}
