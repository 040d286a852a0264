package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(p *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: p}
}

// Checkout godoc
// @Summary Start paying for a course
// @Description Free courses enroll right away, paid courses return a Stripe Checkout URL
// @Tags payments
// @Accept json
// @Param request body services.CheckoutInput true "Course"
// @Success 201 {object} services.CheckoutResult
// @Failure 409 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /payments/checkout [post]
func (pc *PaymentController) Checkout(c *fiber.Ctx) error {
	var input services.CheckoutInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := pc.Payments.Checkout(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, result)
}

// Webhook godoc
// @Summary Stripe webhook receiver
// @Description Verified with the Stripe-Signature header; redelivered events are acknowledged without effect
// @Tags payments
// @Router /payments/webhook [post]
func (pc *PaymentController) Webhook(c *fiber.Ctx) error {
	// c.Body() is reused by fasthttp after the handler returns
	payload := append([]byte(nil), c.Body()...)

	result, err := pc.Payments.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"received": true, "duplicate": result.Duplicate, "handled": result.Handled})
}
