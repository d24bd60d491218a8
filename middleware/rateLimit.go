package middleware

import (
	"fmt"
	"log"

	"lms/services/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit guards a route with the persisted sliding-window limiter. The
// bucket is keyed per authenticated user when available, else per client IP.
// The limiter is advisory: if the store itself fails the request is let
// through rather than blocked on infrastructure trouble.
func RateLimit(limiter *ratelimit.Limiter, prefix string, maxRequests int, windowMs int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := prefix + ":" + c.IP()
		if userID, ok := c.Locals("userId").(uint); ok {
			key = fmt.Sprintf("%s:user:%d", prefix, userID)
		}

		decision, err := limiter.Record(key, maxRequests, windowMs)
		if err != nil {
			log.Printf("[RATELIMIT] Check failed for %s: %v", key, err)
			return c.Next()
		}

		if !decision.Allowed {
			return JsonResponse(c, fiber.StatusTooManyRequests, false, "Too many requests. Please try again later.", fiber.Map{
				"retry_after_ms": decision.RetryAfterMs,
			})
		}

		return c.Next()
	}
}
