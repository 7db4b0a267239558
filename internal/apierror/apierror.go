package apierror

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsConflict reports whether err is an APIError with the conflict code,
// the signal that an optimistic write lost its race and should be retried.
func IsConflict(err error) bool {
	apiErr, ok := err.(APIError)
	return ok && apiErr.Code == ErrConflict
}

// IsNotFound reports whether err is an APIError with the not-found code.
func IsNotFound(err error) bool {
	apiErr, ok := err.(APIError)
	return ok && apiErr.Code == ErrNotFound
}
