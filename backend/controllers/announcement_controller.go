package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AnnouncementController struct {
	Announcements *services.AnnouncementService
}

func NewAnnouncementController(s *services.AnnouncementService) *AnnouncementController {
	return &AnnouncementController{Announcements: s}
}

// Create godoc
// @Summary Post an announcement to a course
// @Tags announcements
// @Accept json
// @Param request body services.AnnouncementInput true "Announcement"
// @Router /announcements [post]
func (ac *AnnouncementController) Create(c *fiber.Ctx) error {
	var input services.AnnouncementInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	a, err := ac.Announcements.Create(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, a)
}

// @Summary Announcements visible to the caller
// @Tags announcements
// @Param course_id query int false "Course filter"
// @Router /announcements [get]
func (ac *AnnouncementController) List(c *fiber.Ctx) error {
	list, err := ac.Announcements.List(c.UserContext(), principal(c), queryID(c, "course_id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"announcements": list})
}

// @Summary Edit an announcement
// @Tags announcements
// @Param request body services.AnnouncementUpdate true "Changes"
// @Router /announcements/{id} [put]
func (ac *AnnouncementController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.AnnouncementUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	a, err := ac.Announcements.Update(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(a)
}

func (ac *AnnouncementController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := ac.Announcements.Delete(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}
