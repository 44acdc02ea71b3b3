package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/ingest"
	"github.com/sudo-OMsharma/personabrain/pkg/retrieval"
)

// envelope is the response shape every endpoint speaks. Success is the
// string "true" or "false", kept for compatibility with existing clients.
type envelope struct {
	Success string `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func sendResponse(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(envelope{
		Success: "true",
		Data:    data,
		Message: message,
	})
}

func sendError(c *fiber.Ctx, status int, data any, message string) error {
	if data == nil {
		data = []string{}
	}
	return c.Status(status).JSON(envelope{
		Success: "false",
		Data:    data,
		Message: message,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrInvalidArgument),
		errors.Is(err, retrieval.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, brain.ErrBrainNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ingest.ErrBrainExists):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
