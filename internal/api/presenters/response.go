package presenters

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mattleonard16/taxhelper-sub000/domain"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, data interface{}, status int, message string) error {
	return c.Status(status).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse always carries the stable machine-readable code next to
// the human message.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	resp := Response{
		Success: false,
		Message: message,
		Code:    domain.ErrorCode(err),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.Status(status).JSON(resp)
}

// StatusFromError picks the HTTP status matching the error's code, so
// handlers don't repeat the mapping.
func StatusFromError(err error) int {
	switch domain.ErrorCode(err) {
	case domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeInvalidStatus, domain.CodeConflict:
		return fiber.StatusConflict
	case domain.CodeValidation, domain.CodeBadRequest:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
