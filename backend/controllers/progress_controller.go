package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Progress *services.ProgressService
}

func NewProgressController(p *services.ProgressService) *ProgressController {
	return &ProgressController{Progress: p}
}

// UpdateLessonProgress godoc
// @Summary Record progress on a lesson
// @Tags progress
// @Accept json
// @Param request body services.ProgressInput true "Progress"
// @Router /progress/lessons/{lessonId} [put]
func (pc *ProgressController) UpdateLessonProgress(c *fiber.Ctx) error {
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.ProgressInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	progress, err := pc.Progress.UpdateLesson(c.UserContext(), principal(c), lessonID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"progress": progress})
}

// @Summary Completion of a course for the current student
// @Tags progress
// @Router /progress/courses/{courseId} [get]
func (pc *ProgressController) GetCourseProgress(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	progress, err := pc.Progress.CourseProgress(c.UserContext(), principal(c), courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(progress)
}
