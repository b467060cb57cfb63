package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one access log entry per request.  Responses with a
// status of 400 or more are logged at error level.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"route":       c.Path(),
				"status":      res.Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"ip":          c.RealIP(),
				"user_id":     currentUserID(c),
			})
			if res.Status >= 400 {
				entry.Error("request")
			} else {
				entry.Info("request")
			}
			return nil
		}
	}
}
