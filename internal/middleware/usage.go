package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/barberbook/barbershop-api/internal/queue"
)

// UsageTracker measures every tracked request and fans the measurement out
// to the structured log and, when publish is non-nil, to the api.usage
// queue.  Publishing runs off the request goroutine and its failures never
// fail the request.  Health checks, docs and static assets are skipped.
func UsageTracker(logger *zap.Logger, publish func(ctx context.Context, ev queue.APIUsageEvent) error) echo.MiddlewareFunc {
	skipExact := map[string]bool{"/healthz": true}
	skipPrefix := []string{"/api/docs", "/api/redoc", "/static/", "/media/"}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if skipExact[path] {
				return next(c)
			}
			for _, p := range skipPrefix {
				if strings.HasPrefix(path, p) {
					return next(c)
				}
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let Echo render the error now so the recorded status is the
				// one the client actually received.
				c.Error(err)
			}

			var userID uint64
			if id, ok := IdentityFrom(c); ok {
				userID = id.UserID
			}
			ev := queue.APIUsageEvent{
				Method:     c.Request().Method,
				Path:       path,
				Route:      c.Path(),
				Status:     c.Response().Status,
				DurationMS: time.Since(start).Milliseconds(),
				UserID:     userID,
				ClientIP:   c.RealIP(),
				UserAgent:  c.Request().UserAgent(),
				OccurredAt: time.Now().UTC().Format(time.RFC3339),
			}

			logger.Info("api_usage",
				zap.String("method", ev.Method),
				zap.String("path", ev.Path),
				zap.Int("status", ev.Status),
				zap.Int64("duration_ms", ev.DurationMS),
				zap.Uint64("user_id", ev.UserID),
				zap.String("client_ip", ev.ClientIP),
			)

			if publish != nil {
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if perr := publish(ctx, ev); perr != nil {
						logger.Warn("usage event publish failed", zap.Error(perr))
					}
				}()
			}
			return nil
		}
	}
}
