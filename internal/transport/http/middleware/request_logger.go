// Package middleware contains HTTP middlewares for delivery.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger logs every request. Commands run git and forge round trips
// inline, so slow and failed requests are raised to warnings.
func RequestLogger(log *zap.SugaredLogger, slow time.Duration) fiber.Handler {
	log = log.Named("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		dur := time.Since(start)

		reqID, _ := c.Locals("requestid").(string)
		if reqID == "" {
			reqID = c.Get(fiber.HeaderXRequestID)
		}
		status := c.Response().StatusCode()
		fields := []any{
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", status,
			"duration_ms", float64(dur.Microseconds()) / 1000.0,
			"request_id", reqID,
		}
		if err != nil {
			fields = append(fields, "error", err)
		}

		switch {
		case status >= fiber.StatusInternalServerError || err != nil:
			log.Warnw("request failed", fields...)
		case slow > 0 && dur > slow:
			log.Warnw("slow request", fields...)
		default:
			log.Infow("request", fields...)
		}
		return err
	}
}
