// Package middleware provides the fiber middleware chain: authentication
// context, request context propagation, logging, rate limiting and tracing.
package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/config"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process logger. It starts from APP_ENV and LOG_LEVEL in the
// environment; Configure replaces it once the full config is loaded.
var Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

// NewLogger builds a logger that writes JSON in production and text
// elsewhere. Every record carries the request id, user id and trace id found
// in its context. An unknown level falls back to info.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

// Configure rebuilds Logger from cfg and makes it the slog default.
func Configure(cfg *config.Config) *slog.Logger {
	Logger = NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(Logger)
	return Logger
}

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	TraceIDKey   contextKey = "trace_id"
)

// ctxHandler decorates records with request-scoped values.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if id, ok := auth.IdentityOf(auth.FromContext(ctx)); ok {
		r.AddAttrs(slog.Any("user_id", id.UserID))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// ContextMiddleware copies the request and trace IDs from fiber locals into the
// request context so the logger can pick them up in deeper layers.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, rid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request. Health checks are logged at
// debug.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []slog.Attr{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", err.Error()))
		case strings.HasPrefix(c.Path(), "/health"):
			level = slog.LevelDebug
		}
		Logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return err
	}
}
