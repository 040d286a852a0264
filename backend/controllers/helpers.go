package controllers

import (
	"strconv"

	"apollo/backend/middleware"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

func principal(c *fiber.Ctx) utils.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, utils.NewValidationError("Invalid %s", name)
	}
	return uint(id), nil
}

func queryID(c *fiber.Ctx, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
