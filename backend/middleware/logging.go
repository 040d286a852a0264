package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware пишет одну строку на запрос
func LoggingMiddleware(logger *log.Logger, colors bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		method := c.Method()
		var statusColor, methodColor, reset string
		if colors {
			statusColor, methodColor, reset = statusColorFor(status), methodColorFor(method), "\033[0m"
		}

		logger.Printf("%s %s %s%s%s %s %s%d%s %v",
			requestID(c),
			c.IP(),
			methodColor, method, reset,
			c.Path(),
			statusColor, status, reset,
			time.Since(start),
		)

		return err
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return "-"
}

func statusColorFor(status int) string {
	switch {
	case status >= 500:
		return "\033[31m"
	case status >= 400:
		return "\033[33m"
	case status >= 300:
		return "\033[36m"
	default:
		return "\033[32m"
	}
}

func methodColorFor(method string) string {
	switch method {
	case fiber.MethodGet:
		return "\033[34m"
	case fiber.MethodPost:
		return "\033[33m"
	case fiber.MethodPut:
		return "\033[36m"
	case fiber.MethodDelete:
		return "\033[31m"
	default:
		return "\033[37m"
	}
}
