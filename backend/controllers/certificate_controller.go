package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CertificateController struct {
	Certificates *services.CertificateService
}

func NewCertificateController(s *services.CertificateService) *CertificateController {
	return &CertificateController{Certificates: s}
}

// Generate godoc
// @Summary Issue a completion certificate
// @Tags certificates
// @Accept json
// @Param request body services.CertificateInput true "Student and course"
// @Router /certificates/generate [post]
func (cc *CertificateController) Generate(c *fiber.Ctx) error {
	var input services.CertificateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	cert, err := cc.Certificates.Generate(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, cert)
}

// @Summary Certificate by id
// @Tags certificates
// @Router /certificates/{id} [get]
func (cc *CertificateController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	cert, err := cc.Certificates.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(cert)
}

// @Summary Certificates held by a student
// @Tags certificates
// @Router /certificates/student/{studentId} [get]
func (cc *CertificateController) ListByStudent(c *fiber.Ctx) error {
	studentID, err := paramID(c, "studentId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	certs, err := cc.Certificates.ListByStudent(c.UserContext(), principal(c), studentID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"certificates": certs})
}

// Verify godoc
// @Summary Public certificate check
// @Description Anyone with the number can confirm who earned it and for which course
// @Tags certificates
// @Router /certificates/verify/{number} [get]
func (cc *CertificateController) Verify(c *fiber.Ctx) error {
	result, err := cc.Certificates.Verify(c.UserContext(), c.Params("number"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(result)
}

func (cc *CertificateController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := cc.Certificates.Delete(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}
