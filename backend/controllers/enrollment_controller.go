package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type EnrollmentController struct {
	Enrollments *services.EnrollmentService
}

func NewEnrollmentController(e *services.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{Enrollments: e}
}

// @Summary Enroll in a course
// @Description Students enroll themselves; admins pass student_id
// @Tags enrollments
// @Router /enrollments [post]
func (ec *EnrollmentController) Enroll(c *fiber.Ctx) error {
	var input services.EnrollInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	enrollment, err := ec.Enrollments.Enroll(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"enrollment": enrollment})
}

// @Summary List enrollments visible to the caller
// @Tags enrollments
// @Param course_id query int false "Course filter"
// @Param student_id query int false "Student filter (admin)"
// @Param payment_status query string false "pending, partial or paid"
// @Router /enrollments [get]
func (ec *EnrollmentController) List(c *fiber.Ctx) error {
	enrollments, err := ec.Enrollments.List(c.UserContext(), principal(c), services.EnrollmentFilter{
		CourseID:      queryID(c, "course_id"),
		StudentID:     queryID(c, "student_id"),
		PaymentStatus: c.Query("payment_status"),
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}

func (ec *EnrollmentController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	enrollment, err := ec.Enrollments.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"enrollment": enrollment})
}
