package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIs(t *testing.T) {
	err := fmt.Errorf("reorder: %w", NewValidationError("order mismatch"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, "reorder: order mismatch", err.Error())
}

func TestHandleErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewNotFoundError("Quiz"), fiber.StatusNotFound},
		{NewAuthorizationError("nope"), fiber.StatusForbidden},
		{NewConflictError("done"), fiber.StatusConflict},
		{NewUnauthenticatedError("who"), fiber.StatusUnauthorized},
		{NewUnavailableError("off"), fiber.StatusServiceUnavailable},
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		app := fiber.New()
		e := tt.err
		app.Get("/", func(c *fiber.Ctx) error { return HandleError(c, e) })

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.err.Error())

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		if tt.status == fiber.StatusInternalServerError {
			assert.Equal(t, "Internal server error", body.Message)
		}
	}
}

func TestValidateStruct(t *testing.T) {
	type answer struct {
		Text string `json:"answer_text" validate:"required"`
	}
	type input struct {
		Title   string   `json:"title" validate:"required,max=10"`
		Points  int      `json:"points" validate:"min=1"`
		Answers []answer `json:"answers" validate:"dive"`
	}

	err := ValidateStruct(input{Title: "way too long title", Points: 0, Answers: []answer{{}}})
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, KindValidation, appErr.Kind)

	details := appErr.Details.(map[string]string)
	assert.Equal(t, "max=10", details["title"])
	assert.Equal(t, "min=1", details["points"])
	assert.Equal(t, "required", details["answers[0].answer_text"])

	assert.NoError(t, ValidateStruct(input{Title: "ok", Points: 1}))
}
