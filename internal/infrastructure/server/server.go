package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/yuvrajinbhakti/UHaveToDo/docs"
	httpHandlers "github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/http"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/application/services"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/metrics"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// Dependencies are the external systems the server talks to
type Dependencies struct {
	Store    ports.TaskRepository
	OAuth    ports.OAuthProvider
	Calendar ports.CalendarGateway
}

// statsReporter is implemented by stores that expose pool statistics
type statsReporter interface {
	Stats() map[string]interface{}
}

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	store   ports.TaskRepository
	metrics *metrics.Metrics
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, appLogger *logger.Logger) (*Server, error) {
	if deps.Store == nil || deps.OAuth == nil || deps.Calendar == nil {
		return nil, errors.New("server needs a task store, an OAuth provider and a calendar gateway")
	}
	if cfg.Security.RateLimitRequests < 1 || cfg.Security.RateLimitWindow <= 0 {
		return nil, errors.New("rate limit must allow at least one request per window")
	}

	e := echo.New()

	// Set custom validator
	e.Validator = services.NewRequestValidator()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	renderer, err := httpHandlers.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	sealer, err := httpHandlers.NewCookieSealer(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}
	cookies := httpHandlers.NewSessionCookies(sealer, cfg.App.IsProduction())

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  deps.Store,
	}

	var recorder ports.MetricsRecorder
	if cfg.Metrics.Enabled {
		server.metrics = metrics.New()
		recorder = server.metrics
	}

	// Initialize services
	taskService := services.NewTaskService(deps.Store, recorder, appLogger)
	authService := services.NewCalendarAuthService(deps.OAuth, cfg.Google, cfg.Session, recorder, appLogger)
	syncService := services.NewCalendarSyncService(deps.Calendar, recorder, appLogger)

	// Initialize handlers
	taskHandler := httpHandlers.NewTaskHandler(taskService, appLogger)
	calendarHandler := httpHandlers.NewCalendarHandler(authService, syncService, cookies, appLogger)
	uiHandler := httpHandlers.NewUIHandler(cfg.App.Name, taskService, cookies, appLogger)

	server.setupMiddleware()
	server.setupRoutes(taskHandler, calendarHandler, uiHandler)

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	// Metrics sit outside the request logger so the logger still sees
	// handler errors before metrics hand them to the error handler.
	if s.metrics != nil {
		s.echo.Use(s.metrics.Middleware())
	}
	s.echo.Use(s.requestLogger())
	s.echo.Use(s.corsMiddleware())
	s.echo.Use(s.rateLimiter())
	s.echo.Use(s.secureHeaders())

	if timeout := s.config.Server.RequestTimeout; timeout > 0 {
		s.echo.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: timeout,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(taskHandler *httpHandlers.TaskHandler, calendarHandler *httpHandlers.CalendarHandler, uiHandler *httpHandlers.UIHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Pages
	s.echo.GET("/", uiHandler.Home)
	s.echo.GET("/todos", uiHandler.Todos)
	s.echo.StaticFS("/static", httpHandlers.StaticFS())

	api := s.echo.Group("/api")

	todos := api.Group("/todos")
	todos.GET("", taskHandler.ListTasks)
	todos.POST("", taskHandler.CreateTask)
	todos.PUT("", taskHandler.UpdateTask)
	todos.DELETE("", taskHandler.DeleteTask)

	calendar := api.Group("/google-calendar")
	calendar.GET("/auth", calendarHandler.Authorize)
	calendar.GET("/callback", calendarHandler.Callback)
	calendar.GET("/status", calendarHandler.Status)
	calendar.POST("/disconnect", calendarHandler.Disconnect)
	calendar.POST("/sync", calendarHandler.Sync)
	calendar.DELETE("/sync", calendarHandler.DeleteEvent)
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.store.Ping(c.Request().Context()); err != nil {
		status = "error"
		s.logger.Warnw("Store health check failed", "error", err)
		checks["database"] = map[string]interface{}{
			"status": "error",
		}
	} else {
		check := map[string]interface{}{"status": "ok"}
		if reporter, ok := s.store.(statsReporter); ok {
			check["stats"] = reporter.Stats()
		}
		checks["database"] = check
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.config.Server.Address(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Infow("Starting server", "address", srv.Addr)
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler writes framework errors in the response shape of the
// route family. Server-side details are only logged.
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
			msg = http.StatusText(code)
		}

		var body interface{}
		if strings.HasPrefix(c.Request().URL.Path, "/api/google-calendar") {
			body = httpHandlers.ErrorResponse{Error: msg}
		} else {
			body = httpHandlers.APIResponse{Error: msg}
		}

		var sendErr error
		if c.Request().Method == http.MethodHead {
			sendErr = c.NoContent(code)
		} else {
			sendErr = c.JSON(code, body)
		}
		if sendErr != nil {
			logger.Errorw("Error sending response", "error", sendErr)
		}
	}
}
