package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AnalyticsController struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsController(a *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Analytics: a}
}

// GetCourseAnalytics возвращает аналитику по курсу (автор или админ)
// @Router /courses/{id}/analytics [get]
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	stats, err := ac.Analytics.Course(c.UserContext(), principal(c), courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(stats)
}

// GetPlatformAnalytics возвращает аналитику по всей платформе (только для админов)
// @Router /analytics/platform [get]
func (ac *AnalyticsController) GetPlatformAnalytics(c *fiber.Ctx) error {
	stats, err := ac.Analytics.Platform(c.UserContext(), principal(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(stats)
}
