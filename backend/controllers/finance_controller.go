package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type FinanceController struct {
	Finance *services.FinanceService
}

func NewFinanceController(f *services.FinanceService) *FinanceController {
	return &FinanceController{Finance: f}
}

// @Summary Balance of the current student
// @Tags finance
// @Router /finance/balance [get]
func (fc *FinanceController) MyBalance(c *fiber.Ctx) error {
	p := principal(c)
	balance, err := fc.Finance.Balance(c.UserContext(), p, p.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(balance)
}

// @Summary Balance of any student (admin)
// @Tags finance
// @Router /finance/balance/{studentId} [get]
func (fc *FinanceController) StudentBalance(c *fiber.Ctx) error {
	studentID, err := paramID(c, "studentId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	balance, err := fc.Finance.Balance(c.UserContext(), principal(c), studentID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(balance)
}

// @Summary Transaction ledger
// @Tags finance
// @Param student_id query int false "Student filter (admin)"
// @Param type query string false "payment, refund or adjustment"
// @Param status query string false "pending, completed or failed"
// @Router /finance/transactions [get]
func (fc *FinanceController) Transactions(c *fiber.Ctx) error {
	page, pageSize := utils.PageParams(c)
	txns, total, err := fc.Finance.Transactions(c.UserContext(), principal(c), services.TransactionFilter{
		StudentID: queryID(c, "student_id"),
		Type:      c.Query("type"),
		Status:    c.Query("status"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Paginate(c, txns, total, page, pageSize)
}

func (fc *FinanceController) Summary(c *fiber.Ctx) error {
	summary, err := fc.Finance.Summary(c.UserContext(), principal(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(summary)
}

// @Summary Manual balance adjustment (admin)
// @Description Positive amounts credit the student, negative amounts charge them
// @Tags finance
// @Router /finance/adjustments [post]
func (fc *FinanceController) Adjust(c *fiber.Ctx) error {
	var input services.AdjustmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	txn, enrollment, err := fc.Finance.Adjust(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"transaction": txn, "enrollment": enrollment})
}

// Earnings godoc
// @Summary Earnings of an instructor
// @Description Instructors see their own numbers, admins pass instructor_id
// @Tags instructor
// @Param instructor_id query int false "Instructor (admin)"
// @Router /instructor/earnings [get]
func (fc *FinanceController) Earnings(c *fiber.Ctx) error {
	earnings, err := fc.Finance.Earnings(c.UserContext(), principal(c), queryID(c, "instructor_id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(earnings)
}

// @Summary Revenue per course of an instructor
// @Tags instructor
// @Param instructor_id query int false "Instructor (admin)"
// @Router /instructor/courses/revenue [get]
func (fc *FinanceController) CourseRevenue(c *fiber.Ctx) error {
	courses, err := fc.Finance.CourseRevenue(c.UserContext(), principal(c), queryID(c, "instructor_id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (fc *FinanceController) InstructorTransactions(c *fiber.Ctx) error {
	txns, err := fc.Finance.InstructorTransactions(c.UserContext(), principal(c), queryID(c, "instructor_id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txns})
}
