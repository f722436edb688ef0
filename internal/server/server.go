// Package server contains the HTTP handlers for the pawfeed API.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "pawfeed/docs" // swagger docs
	"pawfeed/internal/blob"
	"pawfeed/internal/cache"
	"pawfeed/internal/config"
	"pawfeed/internal/events"
	"pawfeed/internal/featureflags"
	"pawfeed/internal/identity"
	"pawfeed/internal/middleware"
	"pawfeed/internal/models"
	"pawfeed/internal/repository"
	"pawfeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// mediaResolver maps a public media path back to a file on disk.
type mediaResolver interface {
	Resolve(handle, file string) (string, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Posts    repository.PostRepository
	Profiles repository.ProfileRepository
	Blobs    blob.Store
	Redis    *redis.Client
	Events   events.Publisher
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	app            *fiber.App
	redis          *redis.Client
	posts          repository.PostRepository
	media          mediaResolver
	identity       *identity.Provider
	flags          *featureflags.Manager
	promMiddleware *fiberprometheus.FiberPrometheus
	postService    *service.PostService
	feedService    *service.FeedService
	engine         *service.InteractionEngine
}

// NewServer creates a server from already-connected dependencies.
func NewServer(cfg *config.Config, deps Deps) *Server {
	c := cache.New(deps.Redis)
	ttl := time.Duration(cfg.FeedCacheTTLSeconds) * time.Second

	s := &Server{
		config:         cfg,
		redis:          deps.Redis,
		posts:          deps.Posts,
		identity:       identity.NewProvider(cfg),
		flags:          featureflags.NewManager(cfg.FeatureFlags),
		promMiddleware: middleware.InitMetrics("pawfeed-api"),
		postService:    service.NewPostService(deps.Posts, deps.Profiles, deps.Blobs, c, deps.Events),
		feedService:    service.NewFeedService(deps.Posts, deps.Profiles, c, ttl),
		engine:         service.NewInteractionEngine(deps.Posts, deps.Profiles, c, deps.Events),
	}
	if r, ok := deps.Blobs.(mediaResolver); ok {
		s.media = r
	}
	return s
}

// App builds the Fiber app with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	maxBody := s.config.ImageMaxUploadSizeMB
	if maxBody <= 0 {
		maxBody = 10
	}
	app := fiber.New(fiber.Config{
		AppName:   "Pawfeed API",
		BodyLimit: (maxBody + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, &models.AppError{Code: codeForStatus(fe.Code), Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if s.media != nil {
		app.Get("/media/i/:handle/:file", s.ServeMedia)
	}

	api := app.Group("/api")
	if s.flags.Enabled(featureflags.Swagger, "") {
		api.Get("/swagger/*", swagger.HandlerDefault)
	}
	if s.flags.Enabled(featureflags.MetricsDashboard, "") {
		api.Get("/metrics/dashboard", monitor.New(monitor.Config{
			Title: "Pawfeed Metrics Dashboard",
		}))
	}

	auth := middleware.AuthRequired(s.identity)
	optional := middleware.OptionalAuth(s.identity)

	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Post("/", auth, middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_post"), s.CreatePost)
	// Specific routes before the generic /:id routes.
	posts.Get("/mine", auth, s.GetMyPosts)
	posts.Post("/:id/like", auth, middleware.RateLimit(s.redis, 120, time.Minute, "like_post"), s.ToggleLike)
	posts.Get("/:id/comments", optional, s.GetComments)
	posts.Post("/:id/comments", auth, middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Delete("/:id", auth, s.DeletePost)

	users := api.Group("/users")
	users.Get("/:id/posts", optional, s.GetUserPosts)
	users.Get("/:id", optional, s.GetUserProfile)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.posts.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The API serves uncached without Redis.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// Listen serves on the configured port until Shutdown.
func (s *Server) Listen() error {
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}
