package domain

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Stable machine-readable codes returned alongside error messages so API
// clients can branch without parsing the human text.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidStatus  = "INVALID_STATUS"
	CodeValidation     = "VALIDATION_ERROR"
	CodeConflict       = "CONFLICT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeBudgetExceeded = "BUDGET_EXCEEDED"
	CodeTimeout        = "TIMEOUT"
	CodeParsingError   = "PARSING_ERROR"
	CodeBadRequest     = "BAD_REQUEST"
	CodeInternal       = "INTERNAL_ERROR"
)

var (
	MessageFailedBodyRequest    = "failed to parse request body"
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedGetToken       = "failed to get token"
	MessageFailedTokenInvalid   = "failed to token invalid"

	JwtSecret = os.Getenv("JWT_SECRET")

	ErrParseUUID      = errors.New("failed to parse UUID")
	ErrUserNotAllowed = errors.New("user not allowed")
	ErrTokenNotFound  = errors.New("failed to token not found")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)

// ErrValidation is the errors.Is target for every ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError lists every offending field in one error so the caller
// sees the full set at once.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(fields ...string) error {
	return &ValidationError{Fields: fields}
}

// ErrorCode maps a service error to its stable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrInsightNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidJobStatus):
		return CodeInvalidStatus
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConfirmConflict):
		return CodeConflict
	case errors.Is(err, ErrParseUUID), errors.Is(err, ErrUserNotAllowed):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}
