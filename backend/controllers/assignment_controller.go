package controllers

import (
	"bytes"
	"fmt"

	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AssignmentController struct {
	Assignments *services.AssignmentService
}

func NewAssignmentController(s *services.AssignmentService) *AssignmentController {
	return &AssignmentController{Assignments: s}
}

// @Summary Assignments of a course
// @Tags assignments
// @Router /courses/{courseId}/assignments [get]
func (ac *AssignmentController) ListByCourse(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	list, err := ac.Assignments.ListByCourse(c.UserContext(), principal(c), courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"assignments": list})
}

// Create godoc
// @Summary Add an assignment to a course
// @Tags assignments
// @Accept json
// @Param request body services.AssignmentInput true "Assignment"
// @Router /courses/{courseId}/assignments [post]
func (ac *AssignmentController) Create(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.AssignmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	a, err := ac.Assignments.Create(c.UserContext(), principal(c), courseID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, a)
}

// @Summary Edit an assignment
// @Tags assignments
// @Param request body services.AssignmentUpdate true "Changes"
// @Router /assignments/{id} [put]
func (ac *AssignmentController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.AssignmentUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	a, err := ac.Assignments.Update(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(a)
}

// @Summary Delete an assignment and its submissions
// @Tags assignments
// @Router /assignments/{id} [delete]
func (ac *AssignmentController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := ac.Assignments.Delete(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

// Submit godoc
// @Summary Submit or resubmit work
// @Description Resubmitting replaces the content and keeps any grade
// @Tags assignments
// @Param request body services.SubmissionInput true "Submission"
// @Router /assignments/{id}/submissions [post]
func (ac *AssignmentController) Submit(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.SubmissionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	sub, err := ac.Assignments.Submit(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, sub)
}

func (ac *AssignmentController) ListSubmissions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	subs, err := ac.Assignments.ListSubmissions(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"submissions": subs})
}

// @Summary Grade a submission
// @Tags assignments
// @Param request body services.GradeInput true "Grade"
// @Router /submissions/{id}/grade [post]
func (ac *AssignmentController) Grade(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.GradeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	sub, err := ac.Assignments.Grade(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(sub)
}

// @Summary Gradebook of a course
// @Tags assignments
// @Param student_id query int false "Student filter"
// @Router /courses/{courseId}/gradebook [get]
func (ac *AssignmentController) Gradebook(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	book, err := ac.Assignments.Gradebook(c.UserContext(), principal(c), courseID, queryID(c, "student_id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(book)
}

// ExportGradebook godoc
// @Summary Gradebook as CSV
// @Tags assignments
// @Produce text/csv
// @Router /courses/{courseId}/gradebook.csv [get]
func (ac *AssignmentController) ExportGradebook(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	var buf bytes.Buffer
	if err := ac.Assignments.WriteGradebookCSV(c.UserContext(), principal(c), courseID, &buf); err != nil {
		return utils.HandleError(c, err)
	}
	c.Attachment(fmt.Sprintf("gradebook_course_%d.csv", courseID))
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}
