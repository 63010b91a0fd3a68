package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattleonard16/taxhelper-sub000/domain"
)

var (
	ErrBudgetExceeded = errors.New("extraction budget exceeded")
	ErrTimeout        = errors.New("extraction timed out")
	ErrParsing        = errors.New("extraction output was unusable")
)

// RateLimitedError carries the provider's retry-after hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("extraction rate limited, retry after %s", e.RetryAfter)
	}
	return "extraction rate limited"
}

// ErrRateLimited is the errors.Is target for RateLimitedError.
var ErrRateLimited = errors.New("extraction rate limited")

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Classify maps an extraction failure to its stable code string.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return domain.CodeRateLimited
	case errors.Is(err, ErrBudgetExceeded):
		return domain.CodeBudgetExceeded
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.CodeTimeout
	case errors.Is(err, ErrParsing):
		return domain.CodeParsingError
	default:
		return "UNKNOWN"
	}
}

// FormatJobError renders the "[CODE] message" string stored on failed jobs.
func FormatJobError(err error) string {
	return fmt.Sprintf("[%s] %s", Classify(err), err.Error())
}

// Retryable reports whether the worker should requeue the job when attempts
// remain. Budget and parsing failures need a human, not another attempt.
func Retryable(err error) bool {
	switch Classify(err) {
	case domain.CodeBudgetExceeded, domain.CodeParsingError:
		return false
	default:
		return true
	}
}
