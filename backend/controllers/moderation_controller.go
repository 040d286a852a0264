package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ModerationController struct {
	Moderation *services.ModerationService
}

func NewModerationController(m *services.ModerationService) *ModerationController {
	return &ModerationController{Moderation: m}
}

type decisionRequest struct {
	Feedback string `json:"feedback"`
}

// @Summary Courses waiting for review
// @Tags moderation
// @Router /moderation/courses/pending [get]
func (mc *ModerationController) ListPending(c *fiber.Ctx) error {
	courses, err := mc.Moderation.ListPending(c.UserContext(), principal(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// @Summary Approve a pending course
// @Tags moderation
// @Router /moderation/courses/{id}/approve [post]
func (mc *ModerationController) Approve(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var req decisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.BadRequest(c, "Cannot parse JSON")
		}
	}

	course, err := mc.Moderation.Approve(c.UserContext(), principal(c), id, req.Feedback)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course approved", "course": course})
}

// @Summary Reject a pending course with feedback
// @Tags moderation
// @Router /moderation/courses/{id}/reject [post]
func (mc *ModerationController) Reject(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, err := mc.Moderation.Reject(c.UserContext(), principal(c), id, req.Feedback)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course rejected", "course": course})
}

func (mc *ModerationController) Reviews(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	reviews, err := mc.Moderation.Reviews(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"reviews": reviews})
}
