package utils

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindAuthorization   ErrorKind = "authorization"
	KindConflict        ErrorKind = "conflict"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindUnavailable     ErrorKind = "unavailable"
)

// AppError тип ошибки, который возвращают сервисы
type AppError struct {
	Kind    ErrorKind
	Message string
	Details interface{}
}

func (e *AppError) Error() string {
	return e.Message
}

// Is сравнивает по Kind, чтобы работал errors.Is(err, ErrConflict)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Kind == e.Kind
}

var (
	ErrValidation      = &AppError{Kind: KindValidation}
	ErrNotFound        = &AppError{Kind: KindNotFound}
	ErrAuthorization   = &AppError{Kind: KindAuthorization}
	ErrConflict        = &AppError{Kind: KindConflict}
	ErrUnauthenticated = &AppError{Kind: KindUnauthenticated}
	ErrUnavailable     = &AppError{Kind: KindUnavailable}
)

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(entity string) *AppError {
	return &AppError{Kind: KindNotFound, Message: entity + " not found"}
}

func NewAuthorizationError(message string) *AppError {
	return &AppError{Kind: KindAuthorization, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: message}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{Kind: KindUnavailable, Message: message}
}

func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindConflict:
		return fiber.StatusConflict
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleError пишет ответ для ошибки сервиса
func HandleError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Error(c, StatusFor(appErr.Kind), appErr, appErr.Details)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return Error(c, fiberErr.Code, fiberErr)
	}
	log.Printf("internal error on %s %s: %v", c.Method(), c.Path(), err)
	return InternalServerError(c, "Internal server error")
}

// FiberErrorHandler ставится в fiber.Config.ErrorHandler
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	return HandleError(c, err)
}
