package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger attaches a child logger carrying the request id to the
// request context and writes one access-log entry per request. Register it
// after echo's RequestID middleware.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			reqID := res.Header().Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = req.Header.Get(echo.HeaderXRequestID)
			}
			log := base.With().Str("request_id", reqID).Logger()
			c.SetRequest(req.WithContext(log.WithContext(req.Context())))

			if err := next(c); err != nil {
				// render now so the status below is the one the client sees
				c.Error(err)
			}

			evt := log.Info()
			if res.Status >= 500 {
				evt = log.Error()
			}
			evt.Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Int64("size", res.Size).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
