package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

// Register godoc
// @Summary Register a new user
// @Description Creates a student or instructor account and returns a token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body services.RegisterInput true "User registration data"
// @Success 201 {object} services.AuthResult
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := ac.Auth.Register(c.UserContext(), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, result)
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginInput true "Login credentials"
// @Success 200 {object} services.AuthResult
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := ac.Auth.Login(c.UserContext(), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(result)
}

// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Router /auth/me [get]
func (ac *AuthController) Me(c *fiber.Ctx) error {
	user, err := ac.Auth.Me(c.UserContext(), principal(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (ac *AuthController) UpdateProfile(c *fiber.Ctx) error {
	var input services.ProfileUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	user, err := ac.Auth.UpdateProfile(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
