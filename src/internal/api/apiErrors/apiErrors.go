package apiErrors

import "fmt"

type ErrorCode string

const (
	NotFound           ErrorCode = "NOT_FOUND"
	InvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ValidationFailed   ErrorCode = "VALIDATION_FAILED"
	BadRequest         ErrorCode = "BAD_REQUEST"
	Conflict           ErrorCode = "CONFLICT"
	StorageFailure     ErrorCode = "STORAGE_FAILURE"
)

type APIError struct {
	Code    ErrorCode
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
