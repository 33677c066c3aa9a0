package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "ContractScan/pkg/logger"
)

// RequestLogging logs one debug line per request and a warning for 4xx responses.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeOf(c)),
				applogger.Int("status", res.Status),
				applogger.String("remote", c.RealIP()),
				applogger.Duration("duration_ms", time.Since(start)),
			}
			if res.Status >= 400 && res.Status < 500 {
				l.Warn("http request rejected", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
