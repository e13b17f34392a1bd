package web

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/session"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SuccessResponse wraps data in a successful envelope.
func SuccessResponse(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

// ErrorResponse builds a failed envelope.
func ErrorResponse(message string) Response {
	return Response{Success: false, Message: message}
}

// statusFor maps domain errors onto HTTP status codes and the message shown to the user.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, session.ErrNotFound):
		return fiber.StatusNotFound, session.ErrNotFound.Error()
	case errors.Is(err, session.ErrEmptyQuestion):
		return fiber.StatusBadRequest, session.ErrEmptyQuestion.Error()
	case errors.Is(err, extract.ErrUnsupported):
		return fiber.StatusBadRequest, extract.ErrUnsupported.Error()
	case errors.Is(err, session.ErrNotReady):
		return fiber.StatusConflict, session.ErrNotReady.Error()
	case errors.Is(err, session.ErrNoTreatment):
		return fiber.StatusConflict, session.ErrNoTreatment.Error()
	case errors.Is(err, session.ErrUnreadableDocument):
		return fiber.StatusUnprocessableEntity, "Unable to properly review the document. Please try again with a different file."
	case errors.Is(err, session.ErrAudioNotFound):
		return fiber.StatusInternalServerError, "Audio file not found."
	default:
		return fiber.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

// errorHandler renders any error returned by a handler as an envelope.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		} else {
			logger.Debug("Request rejected", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(ErrorResponse(message))
	}
}
