package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskmaster/daybook/internal/adapters/http"
)

// authMiddleware validates bearer JWTs issued by the auth service
func (s *Server) authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := s.deps.Auth.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(httpHandlers.ContextUserKey, claims.UserID)
			c.Set(httpHandlers.ContextEmailKey, claims.Email)

			return next(c)
		}
	}
}

// sessionGuard leaves the task routes open while the device is signed out.
// Once a user is signed in, requests must carry a token issued to that user.
func (s *Server) sessionGuard() echo.MiddlewareFunc {
	bearer := s.authMiddleware()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		owned := bearer(func(c echo.Context) error {
			userID, _ := c.Get(httpHandlers.ContextUserKey).(string)
			if userID != s.deps.Sync.Status().UserID {
				s.logger.LogSecurityEvent("session_owner_mismatch", userID, c.RealIP(), map[string]interface{}{
					"path": c.Path(),
				})
				return echo.NewHTTPError(http.StatusForbidden, "Token does not belong to the signed-in user")
			}
			return next(c)
		})

		return func(c echo.Context) error {
			if s.deps.Sync.Status().UserID == "" {
				return next(c)
			}
			return owned(c)
		}
	}
}

// setupMetrics records request counts and latency and exposes /metrics
func (s *Server) setupMetrics() {
	m := s.deps.Metrics

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			m.RequestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(m.Handler()))
}
