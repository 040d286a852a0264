package controllers

import (
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type UploadController struct {
	Uploads *services.UploadService
}

func NewUploadController(u *services.UploadService) *UploadController {
	return &UploadController{Uploads: u}
}

// Upload godoc
// @Summary Upload course media
// @Tags uploads
// @Accept multipart/form-data
// @Param file formData file true "File"
// @Param kind formData string true "image, video or document"
// @Success 201 {object} services.UploadResult
// @Failure 400 {object} utils.ErrorResponse
// @Router /uploads [post]
func (uc *UploadController) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "file is required")
	}

	result, err := uc.Uploads.Upload(c.UserContext(), principal(c), c.FormValue("kind"), fh)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, result)
}
