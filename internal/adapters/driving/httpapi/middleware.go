package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// UserHeader carries the authenticated user id.
const UserHeader = "X-User-ID"

// userKey is the echo context key holding the user id.
const userKey = "userID"

// RequireUser rejects requests without a user id.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := strings.TrimSpace(c.Request().Header.Get(UserHeader))
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: msgUnauthorized})
			}
			c.Set(userKey, uid)
			return next(c)
		}
	}
}

// userID returns the id stored by RequireUser.
func userID(c echo.Context) string {
	uid, _ := c.Get(userKey).(string)
	return uid
}

// requestLogger logs each request at debug level.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency.Round(time.Millisecond))
			return nil
		},
	})
}
