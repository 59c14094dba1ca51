package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	httpHandlers "github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/http"
)

// requestLogger logs one line per request through the application logger
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			latencyMs := float64(values.Latency.Nanoseconds()) / 1000000

			if values.Error != nil {
				s.logger.Errorw("HTTP request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"latency_ms", latencyMs,
					"remote_ip", values.RemoteIP,
					"request_id", values.RequestID,
					"error", values.Error.Error(),
				)
				return nil
			}

			s.logger.WithRequestID(values.RequestID).
				LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status, latencyMs)
			return nil
		},
	})
}

// corsMiddleware allows the configured browser origins
func (s *Server) corsMiddleware() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: splitOrigins(s.config.Security.CORSAllowedOrigins),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
	})
}

// rateLimiter throttles each client IP to the configured requests per window
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	requests := s.config.Security.RateLimitRequests
	perSecond := rate.Limit(float64(requests) / s.config.Security.RateLimitWindow.Seconds())

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return isHealthRoute(c.Path())
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: perSecond, Burst: requests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, httpHandlers.APIResponse{Error: "Rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.LogSecurityEvent("rate_limited", identifier, map[string]interface{}{"path": c.Path()})
			return c.JSON(http.StatusTooManyRequests, httpHandlers.APIResponse{Error: "Rate limit exceeded"})
		},
	})
}

// secureHeaders sets the browser hardening headers. The swagger UI ships
// inline scripts and is left out of the content security policy.
func (s *Server) secureHeaders() echo.MiddlewareFunc {
	strict := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	})
	relaxed := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		strictNext, relaxedNext := strict(next), relaxed(next)
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, "/swagger") {
				return relaxedNext(c)
			}
			return strictNext(c)
		}
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func isHealthRoute(path string) bool {
	switch path {
	case "/health", "/health/detailed", "/ready", "/metrics":
		return true
	}
	return false
}
