// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "promptlime/docs" // swagger docs
	"promptlime/internal/bootstrap"
	"promptlime/internal/config"
	"promptlime/internal/featureflags"
	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/notifications"
	"promptlime/internal/observability"
	"promptlime/internal/repository"
	"promptlime/internal/service"

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

	userRepo repository.UserRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	sessionService      *service.SessionService
	copyService         *service.CopyService
	engagementService   *service.EngagementService
	moderationService   *service.ModerationService
	notificationService *service.NotificationService
	userService         *service.UserService
	paymentService      *service.PaymentService
	settingsService     *service.SettingsService
	catalogService      *service.CatalogService
	promptService       *service.PromptService
	imageService        *service.ImageService
	statsService        *service.StatsService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// The catalog upsert is idempotent, so every boot refreshes it.
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedCatalog: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limits, caching, revocation and realtime push
// are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	promptRepo := repository.NewPromptRepository(db)
	reportRepo := repository.NewReportRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	notifier := notifications.NewNotifier(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		userRepo:       userRepo,
		notifier:       notifier,
		hub:            notifications.NewHub(),
		featureFlags:   flags,
	}

	s.settingsService = service.NewSettingsService(settingRepo, cfg.FreeCopyLimit)
	s.catalogService = service.NewCatalogService(catalogRepo)
	s.sessionService = service.NewSessionService(userRepo, cfg, redisClient)
	s.copyService = service.NewCopyService(userRepo, promptRepo, s.settingsService, flags, loc)
	s.engagementService = service.NewEngagementService(promptRepo)
	s.moderationService = service.NewModerationService(reportRepo, promptRepo)
	s.notificationService = service.NewNotificationService(notificationRepo, notifier)
	s.userService = service.NewUserService(userRepo)
	s.paymentService = service.NewPaymentService(paymentRepo, cfg.PaymentWebhookSecret)
	s.promptService = service.NewPromptService(promptRepo, s.catalogService, flags)
	s.imageService = service.NewImageService(cfg)
	s.statsService = service.NewStatsService(userRepo, promptRepo, reportRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Prompt images are embedded by the frontend from another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Signature, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Path() == "/api/payments/webhook"
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "PromptLime API Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded prompt images
	app.Static(service.MediaURLPrefix, s.imageService.UploadDir(), fiber.Static{
		MaxAge: 86400,
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/session", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "sign_in"), s.SignIn)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Payment provider callbacks carry their own signature
	api.Post("/payments/webhook", s.PaymentWebhook)

	// Public catalog
	api.Get("/categories", s.GetCategories)
	api.Get("/tools", s.GetTools)
	api.Get("/settings/public", s.GetPublicSettings)

	prompts := api.Group("/prompts", s.OptionalAuth())
	prompts.Get("/", s.ListPrompts)
	prompts.Get("/featured", s.GetFeaturedPrompts)
	prompts.Post("/:id/view", middleware.SilentThrottle(
		s.redis, 1, 10*time.Minute, "prompt_view", middleware.ByIPAndParam("id")), s.RecordView)
	prompts.Post("/:id/copy", middleware.RateLimit(
		s.redis, 30, time.Minute, "prompt_copy"), s.CopyPrompt)
	prompts.Get("/:id", s.GetPrompt)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	protected.Post("/prompts", middleware.RateLimit(
		s.redis, 5, time.Hour, "submit_prompt"), s.SubmitPrompt)
	protected.Post("/prompts/:id/like", s.LikePrompt)
	protected.Delete("/prompts/:id/like", s.UnlikePrompt)
	protected.Post("/prompts/:id/reports", middleware.RateLimit(
		s.redis, 10, time.Hour, "submit_report"), s.ReportPrompt)

	protected.Get("/me/quota", s.GetMyQuota)

	inbox := protected.Group("/notifications")
	inbox.Get("/", s.GetNotifications)
	inbox.Get("/unread-count", s.GetUnreadCount)
	inbox.Post("/read-all", s.MarkAllNotificationsRead)
	inbox.Post("/:id/read", s.MarkNotificationRead)
	inbox.Delete("/:id", s.DeleteNotification)

	// WebSocket ticket issuance and notification stream
	protected.Post("/ws/ticket", s.IssueWSTicket)
	protected.Get("/ws", s.WebsocketHandler())

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/stats", s.GetDashboardStats)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	adminPrompts := admin.Group("/prompts")
	adminPrompts.Post("/", s.CreatePrompt)
	adminPrompts.Put("/:id", s.UpdatePrompt)
	adminPrompts.Delete("/:id", s.DeletePrompt)
	admin.Post("/images", s.UploadPromptImage)

	admin.Post("/categories", s.CreateCategory)
	admin.Delete("/categories/:id", s.DeleteCategory)
	admin.Post("/tools", s.CreateTool)
	admin.Delete("/tools/:id", s.DeleteTool)

	adminUsers := admin.Group("/users")
	adminUsers.Get("/", s.GetUsers)
	adminUsers.Post("/:id/pro", s.SetUserPro)
	adminUsers.Post("/:id/admin", s.SetUserAdmin)
	adminUsers.Delete("/:id", s.DeleteUser)

	adminReports := admin.Group("/reports")
	adminReports.Get("/", s.GetReports)
	adminReports.Post("/:id/resolve", s.ResolveReport)
	adminReports.Post("/:id/dismiss", s.DismissReport)

	admin.Post("/notifications", s.SendNotification)

	admin.Get("/settings", s.GetSettings)
	admin.Put("/settings/:key", s.UpdateSetting)
}

// HealthCheck is a simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
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
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the API degrades to no cache and no push.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": observability.ServiceName,
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"realtime_connections": s.hub.ConnectionCount(),
		"time":                 time.Now(),
	})
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "PromptLime API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) bodyLimit() int {
	mb := s.config.ImageMaxUploadSizeMB
	if mb <= 0 {
		mb = service.DefaultImageMaxUploadSizeMB
	}
	// Multipart framing on top of the largest accepted image.
	return (mb + 1) * 1024 * 1024
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
