package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deepthoughts/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	inner *auth.ContextResolver
	calls int
}

func (r *countingResolver) Resolve(header string) auth.AuthContext {
	r.calls++
	return r.inner.Resolve(header)
}

func TestAuthContext(t *testing.T) {
	secret := "test-secret-key-12345678901234567890123456789012"
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(secret)})
	require.NoError(t, err)

	expired, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(secret)},
		auth.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) }))
	require.NoError(t, err)

	resolver := &countingResolver{inner: auth.NewContextResolver(tokens, nil)}

	app := fiber.New()
	// Registered twice on purpose: the second pass must reuse the first result.
	app.Use(AuthContext(resolver))
	app.Use(AuthContext(resolver))
	app.Get("/test", func(c *fiber.Ctx) error {
		id, ok := auth.IdentityOf(auth.FromContext(c.UserContext()))
		return c.JSON(fiber.Map{"authenticated": ok, "username": id.Username})
	})

	generateToken := func(svc *auth.TokenService) string {
		s, err := svc.Sign(auth.Identity{UserID: 123, Username: "ana", Email: "a@x.com"})
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name          string
		authHeader    string
		authenticated bool
	}{
		{name: "Happy Path", authHeader: "Bearer " + generateToken(tokens), authenticated: true},
		{name: "Missing Header", authHeader: ""},
		{name: "Invalid Format", authHeader: "Basic dXNlcjpwYXNz"},
		{name: "Malformed Token", authHeader: "Bearer malformed.token.here"},
		{name: "Expired Token", authHeader: "Bearer " + generateToken(expired)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver.calls = 0
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			// Bad tokens never reject the request at this layer.
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, 1, resolver.calls)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.authenticated, body["authenticated"])
			if tt.authenticated {
				assert.Equal(t, "ana", body["username"])
			}
		})
	}
}
