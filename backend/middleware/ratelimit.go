package middleware

import (
	"time"

	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// AuthRateLimiter limits login and registration attempts per IP.
func AuthRateLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 15
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.TooManyRequests(c, "Too many authentication attempts, please try again later")
		},
	})
}
