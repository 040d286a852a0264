package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	Notifications *services.NotificationService
}

func NewNotificationController(n *services.NotificationService) *NotificationController {
	return &NotificationController{Notifications: n}
}

// @Summary Notifications of the current user, newest first
// @Tags notifications
// @Param unread query bool false "Only unread"
// @Router /notifications [get]
func (nc *NotificationController) List(c *fiber.Ctx) error {
	items, err := nc.Notifications.List(c.UserContext(), principal(c), c.QueryBool("unread"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": items})
}

func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	n, err := nc.Notifications.MarkRead(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"notification": n})
}
