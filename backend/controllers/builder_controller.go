package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// BuilderController serves the course builder: sections, lessons and their order.
type BuilderController struct {
	Builder *services.BuilderService
}

func NewBuilderController(builder *services.BuilderService) *BuilderController {
	return &BuilderController{Builder: builder}
}

// @Summary List course sections in order
// @Tags builder
// @Router /courses/{courseId}/sections [get]
func (bc *BuilderController) ListSections(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	sections, err := bc.Builder.ListSections(c.UserContext(), principal(c), courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"sections": sections})
}

// @Summary Append a section to a course
// @Tags builder
// @Router /courses/{courseId}/sections [post]
func (bc *BuilderController) CreateSection(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.SectionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	section, err := bc.Builder.CreateSection(c.UserContext(), principal(c), courseID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"section": section})
}

func (bc *BuilderController) UpdateSection(c *fiber.Ctx) error {
	id, err := paramID(c, "sectionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.SectionUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	section, err := bc.Builder.UpdateSection(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"section": section})
}

func (bc *BuilderController) DeleteSection(c *fiber.Ctx) error {
	id, err := paramID(c, "sectionId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := bc.Builder.DeleteSection(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Section deleted"})
}

// ReorderSections godoc
// @Summary Reorder the sections of a course
// @Description Body is the full list of section ids in the new order
// @Tags builder
// @Accept json
// @Param request body services.ReorderInput true "New order"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Router /courses/{courseId}/sections/reorder [put]
func (bc *BuilderController) ReorderSections(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.ReorderInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	sections, err := bc.Builder.ReorderSections(c.UserContext(), principal(c), courseID, input.Order)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"sections": sections})
}

func (bc *BuilderController) ListLessons(c *fiber.Ctx) error {
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	lessons, err := bc.Builder.ListLessons(c.UserContext(), principal(c), sectionID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"lessons": lessons})
}

func (bc *BuilderController) CreateLesson(c *fiber.Ctx) error {
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.LessonInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	lesson, err := bc.Builder.CreateLesson(c.UserContext(), principal(c), sectionID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"lesson": lesson})
}

func (bc *BuilderController) UpdateLesson(c *fiber.Ctx) error {
	id, err := paramID(c, "lessonId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.LessonUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	lesson, err := bc.Builder.UpdateLesson(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"lesson": lesson})
}

func (bc *BuilderController) DeleteLesson(c *fiber.Ctx) error {
	id, err := paramID(c, "lessonId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := bc.Builder.DeleteLesson(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Lesson deleted"})
}

// @Summary Reorder the lessons of a section
// @Tags builder
// @Router /sections/{sectionId}/lessons/reorder [put]
func (bc *BuilderController) ReorderLessons(c *fiber.Ctx) error {
	sectionID, err := paramID(c, "sectionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.ReorderInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	lessons, err := bc.Builder.ReorderLessons(c.UserContext(), principal(c), sectionID, input.Order)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"lessons": lessons})
}
