package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deepthoughts/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		level     string
		json      bool
		debugSeen bool
	}{
		{name: "Production is JSON", env: "production", level: "info", json: true},
		{name: "Prod alias", env: "PROD", level: "", json: true},
		{name: "Development is text", env: "development", level: "debug", debugSeen: true},
		{name: "Unknown level falls back to info", env: "test", level: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.env, tt.level)

			logger.Debug("hidden")
			logger.Info("shown")

			out := buf.String()
			assert.Equal(t, tt.debugSeen, strings.Contains(out, "hidden"))
			assert.Contains(t, out, "shown")
			assert.Equal(t, tt.json, json.Valid([]byte(strings.SplitN(out, "\n", 2)[0])))
		})
	}
}

func TestCtxHandlerAddsRequestScope(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "info")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")
	ctx = auth.WithContext(ctx, auth.Authenticated{Identity: auth.Identity{UserID: 9, Username: "ana"}})
	logger.With(slog.String("component", "test")).InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "trace-1", rec["trace_id"])
	assert.EqualValues(t, 9, rec["user_id"])
	assert.Equal(t, "test", rec["component"])
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger(&buf, "production", "info")
	t.Cleanup(func() { Logger = prev })

	app := fiber.New()
	app.Use(requestid.New(), ContextMiddleware(), StructuredLogger())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/graphql", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusTeapot) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Zero(t, buf.Len(), "health checks log at debug")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/graphql", nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "request", rec["msg"])
	assert.EqualValues(t, fiber.StatusTeapot, rec["status"])
	assert.Equal(t, "/graphql", rec["path"])
	assert.NotEmpty(t, rec["request_id"])
}
