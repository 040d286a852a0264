package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CoursesController struct {
	Courses *services.CourseService
}

func NewCoursesController(courses *services.CourseService) *CoursesController {
	return &CoursesController{Courses: courses}
}

// ListCourses godoc
// @Summary List courses
// @Description Approved courses by default; scope=all lists managed courses
// @Tags courses
// @Produce json
// @Param scope query string false "all"
// @Param category query string false "Category filter"
// @Param q query string false "Search text"
// @Success 200 {object} utils.PaginatedResponse
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	page, pageSize := utils.PageParams(c)
	courses, total, err := cc.Courses.List(c.UserContext(), principal(c), services.CourseFilter{
		Scope:    c.Query("scope"),
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Paginate(c, courses, total, page, pageSize)
}

// @Summary Course details with sections and lessons
// @Tags courses
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	course, err := cc.Courses.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"course": course})
}

// @Summary Create a draft course
// @Tags courses
// @Router /courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input services.CourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, err := cc.Courses.Create(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"message": "Course created", "course": course})
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.CourseUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, err := cc.Courses.Update(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course updated", "course": course})
}

func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := cc.Courses.Delete(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course deleted"})
}

// @Summary Submit a course for moderation
// @Tags courses
// @Router /courses/{id}/submit [post]
func (cc *CoursesController) SubmitCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	course, err := cc.Courses.Submit(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course submitted for review", "course": course})
}
