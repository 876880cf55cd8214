package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/taskmaster/daybook/docs"
	httpHandlers "github.com/taskmaster/daybook/internal/adapters/http"
	"github.com/taskmaster/daybook/internal/application/services"
	"github.com/taskmaster/daybook/internal/infrastructure/config"
	"github.com/taskmaster/daybook/internal/infrastructure/database"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/infrastructure/metrics"
)

// Dependencies are the services and connections the server routes to.
// Auth, Accounts, DB and Mongo are nil when not configured.
type Dependencies struct {
	Tasks    *services.TaskService
	Transfer *services.TransferService
	Sync     *services.SyncService
	Auth     *services.AuthService
	Accounts *services.AccountService
	DB       *database.DB
	Mongo    *database.Mongo
	Metrics  *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	deps    Dependencies
	started time.Time
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger.WithComponent("server"),
		deps:    deps,
		started: time.Now(),
	}

	server.setupMiddleware()
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		server.setupMetrics()
	}
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			latency := float64(values.Latency.Nanoseconds()) / 1000000
			if values.Error != nil {
				s.logger.Errorw("HTTP request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"latency_ms", latency,
					"remote_ip", values.RemoteIP,
					"error", values.Error.Error(),
				)
				return nil
			}
			s.logger.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status, latency)
			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:  []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))

	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      requestRate(s.config.Security.RateLimitRequests, s.config.Security.RateLimitWindow),
					Burst:     s.config.Security.RateLimitRequests,
					ExpiresIn: s.config.Security.RateLimitWindow,
				},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, map[string]string{"error": "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			},
		}))
	}

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper:      func(c echo.Context) bool { return strings.HasPrefix(c.Path(), "/swagger") },
		ErrorMessage: "request timed out",
		Timeout:      30 * time.Second,
	}))
}

// requestRate spreads requests evenly over the window
func requestRate(requests int, window time.Duration) rate.Limit {
	if window <= 0 {
		return rate.Limit(requests)
	}
	return rate.Limit(float64(requests) / window.Seconds())
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	taskHandler := httpHandlers.NewTaskHandler(s.deps.Tasks, s.deps.Sync, s.logger)
	transferHandler := httpHandlers.NewTransferHandler(s.deps.Transfer, s.logger)
	syncHandler := httpHandlers.NewSyncHandler(s.deps.Sync, s.logger)

	v1 := s.echo.Group("/api/v1")

	// without accounts nobody can sign in, so there is no session to guard
	var guard []echo.MiddlewareFunc
	if s.deps.Auth != nil {
		guard = append(guard, s.sessionGuard())
	}

	tasks := v1.Group("/tasks", guard...)
	tasks.GET("", taskHandler.ListTasks)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("/:date", taskHandler.GetDay)
	tasks.DELETE("/:id", taskHandler.DeleteTask)
	tasks.PATCH("/:id/status", taskHandler.UpdateStatus)
	tasks.PATCH("/:id/content", taskHandler.UpdateContent)
	tasks.PATCH("/:id/priority", taskHandler.UpdatePriority)
	tasks.PATCH("/:id/reminder", taskHandler.UpdateReminder)
	tasks.POST("/:id/move", taskHandler.MoveTask)

	days := v1.Group("/days", guard...)
	days.POST("/:date/reorder", taskHandler.ReorderDay)
	days.POST("/:date/sort", taskHandler.SortDay)

	v1.PUT("/active-date", taskHandler.SetActiveDate, guard...)

	v1.GET("/export", transferHandler.Export, guard...)
	v1.POST("/import", transferHandler.Import, guard...)

	v1.GET("/sync/status", syncHandler.Status)
	v1.POST("/sync", syncHandler.Resync, guard...)

	if s.deps.Auth == nil {
		return
	}

	authHandler := httpHandlers.NewAuthHandler(s.deps.Auth, s.deps.Sync, s.logger)
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)
	auth.POST("/logout", authHandler.Logout, s.authMiddleware())

	if s.deps.Accounts != nil {
		accountHandler := httpHandlers.NewAccountHandler(s.deps.Accounts, s.logger)
		v1.DELETE("/account", accountHandler.DeleteAccount, s.authMiddleware())
	}
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}
