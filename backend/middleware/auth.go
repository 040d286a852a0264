package middleware

import (
	"apollo/backend/config"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// AuthMiddleware проверяет токен и кладет Principal в Locals
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := utils.ExtractPrincipalFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals(principalKey, p)
		return c.Next()
	}
}

// OptionalAuth кладет Principal, если передан валидный токен, и пропускает
// анонимные запросы
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		if p, err := utils.ExtractPrincipalFromToken(c, cfg); err == nil {
			c.Locals(principalKey, p)
		}
		return c.Next()
	}
}

// RequireRoles должен идти после AuthMiddleware
func RequireRoles(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		p, ok := CurrentPrincipal(c)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if _, ok := allowed[p.Role]; !ok {
			return utils.Forbidden(c, "Insufficient permissions")
		}
		return c.Next()
	}
}

func CurrentPrincipal(c *fiber.Ctx) (utils.Principal, bool) {
	p, ok := c.Locals(principalKey).(utils.Principal)
	return p, ok
}
