package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "SignalDesk/pkg/logger"
)

// RequestLogging logs every request with the route template, status and latency.
// Requests slower than slow are logged at warn level; 5xx at error level.
func RequestLogging(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			dur := time.Since(start)
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeLabel(c)),
				applogger.String("uri", req.RequestURI),
				applogger.Int("status", res.Status),
				applogger.Duration("duration_ms", dur),
				applogger.Int64("bytes", res.Size),
				applogger.String("remote_ip", c.RealIP()),
			}
			switch {
			case res.Status >= 500:
				if err != nil {
					fields = append(fields, applogger.Error(err))
				}
				l.Error("http request failed", fields...)
			case slow > 0 && dur >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			// c.Error already wrote the response.
			return nil
		}
	}
}
