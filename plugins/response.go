package plugins

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/linht/dw1000-manager/dw1000"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error response
func SendError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// SendErrorMessage sends an error response with a custom message
func SendErrorMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// SendDriverError sends a driver error with a status derived from its kind
func SendDriverError(c *fiber.Ctx, err error) error {
	kind := dw1000.Kind(err)

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(kind, dw1000.ErrInvalidRegister),
		errors.Is(kind, dw1000.ErrLengthExceeded),
		errors.Is(kind, dw1000.ErrEmptyBuffer):
		status = fiber.StatusBadRequest
	case errors.Is(kind, dw1000.ErrVerificationFailed):
		status = fiber.StatusConflict
	case errors.Is(kind, dw1000.ErrBusError):
		status = fiber.StatusBadGateway
	}

	resp := APIResponse{
		Success: false,
		Error:   err.Error(),
	}
	if kind != nil {
		resp.Kind = kind.Error()
	}
	return c.Status(status).JSON(resp)
}
