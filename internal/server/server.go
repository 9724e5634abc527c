// Package server wires the fiber application: middleware chain, the GraphQL
// endpoint, health checks and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/cache"
	"deepthoughts/internal/config"
	"deepthoughts/internal/database"
	"deepthoughts/internal/events"
	"deepthoughts/internal/graph"
	"deepthoughts/internal/middleware"
	"deepthoughts/internal/models"
	"deepthoughts/internal/observability"
	"deepthoughts/internal/repository"
	"deepthoughts/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	logger         *slog.Logger

	tokens   *auth.TokenService
	resolver *auth.ContextResolver
	cache    *cache.Cache
	notifier *events.Notifier
	svc      *service.Service
	schema   *graphql.Schema
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis backs caching, events and rate limiting; the API still works
	// without it.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("redis unavailable, continuing without it", slog.String("error", err.Error()))
		redisClient = nil
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	logger := middleware.Logger

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   []byte(cfg.JWTSecret),
		TTL:      cfg.JWTTTL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		logger:         logger,
		tokens:         tokens,
		resolver:       auth.NewContextResolver(tokens, logger),
	}

	// Keep the interfaces nil when Redis is absent so the consumers see a
	// disabled client rather than a typed nil pointer.
	if redisClient != nil {
		s.cache = cache.New(redisClient, logger)
		s.notifier = events.NewNotifier(redisClient, logger)
	} else {
		s.cache = cache.New(nil, logger)
		s.notifier = events.NewNotifier(nil, logger)
	}

	s.svc = service.New(service.Deps{
		Store:  repository.NewStore(db, s.cache),
		Tokens: tokens,
		Hasher: auth.NewBcryptHasher(cfg.BcryptCost),
		Events: s.notifier,
		Logger: logger,
	})

	s.schema, err = graph.NewSchema(s.svc, graph.Options{
		MaxDepth:       cfg.GraphQLMaxDepth,
		MaxParallelism: cfg.GraphQLMaxParallelism,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// NewApp builds a fiber app with the full middleware chain and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Deep Thoughts API",
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global in-process rate limiting per IP
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return respondError(c, fiber.StatusTooManyRequests, "Too many requests, please try again later.", models.CodeRateLimited)
		},
	}))

	// The caller's identity is resolved once here, before logging so the
	// request log line carries the user id.
	app.Use(middleware.AuthContext(s.resolver))

	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if !s.config.IsProduction() {
		app.Get("/metrics/dashboard", monitor.New(monitor.Config{
			Title: "Deep Thoughts Metrics Dashboard",
		}))
	}

	gql := app.Group("/graphql")
	if s.redis != nil {
		gql.Use(middleware.RateLimit(s.redis, s.config.RateLimitPerMinute, time.Minute, "graphql"))
	}
	gql.Post("", s.GraphQLPost)
	gql.Get("", s.GraphQLGet)
}

// Start builds the app, starts the event subscriber and blocks serving HTTP.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.redis != nil {
		if _, err := s.notifier.Subscribe(s.shutdownCtx, s.logEvent); err != nil {
			s.logger.Warn("event subscriber not started", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

func (s *Server) logEvent(evt events.Event) {
	s.logger.Debug("event",
		slog.String("type", evt.Type),
		slog.Any("actor_id", evt.ActorID),
		slog.Time("at", evt.At),
	)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("error closing database", slog.String("error", err.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeBadRequest
		if fe.Code == fiber.StatusNotFound {
			code = models.CodeNotFound
		}
		return respondError(c, fe.Code, fe.Message, code)
	}
	s.logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return respondError(c, fiber.StatusInternalServerError, "Internal server error", models.CodeInternal)
}
