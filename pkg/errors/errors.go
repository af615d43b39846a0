package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code identifies an error class across service and transport boundaries.
type Code string

const (
	CodeIncompleteInput       Code = "INCOMPLETE_INPUT"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodePastReminder          Code = "PAST_REMINDER"
	CodeConcurrencyConflict   Code = "CONCURRENCY_CONFLICT"
	CodeCapacityExceeded      Code = "CAPACITY_EXCEEDED"
	CodeExtractionTimeout     Code = "EXTRACTION_TIMEOUT"
	CodeClassificationTimeout Code = "CLASSIFICATION_TIMEOUT"
	CodeAuthentication        Code = "AUTHENTICATION_FAILED"
	CodeAuthorization         Code = "AUTHORIZATION_FAILED"
	CodeNotFound              Code = "NOT_FOUND"
	CodeBadRequest            Code = "BAD_REQUEST"
	CodeInternal              Code = "INTERNAL"
)

// AppError is the error shape reported to collaborators: a stable code, a
// user-safe message, technical detail for diagnosis, and request correlation.
type AppError struct {
	Code      Code      `json:"error_code"`
	Message   string    `json:"user_message"`
	Detail    string    `json:"technical_detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Err       error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status for the error middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodeIncompleteInput, CodePastReminder:
		return http.StatusBadRequest
	case CodeInvalidTransition, CodeConcurrencyConflict:
		return http.StatusConflict
	case CodeCapacityExceeded:
		return http.StatusTooManyRequests
	case CodeExtractionTimeout, CodeClassificationTimeout:
		return http.StatusGatewayTimeout
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WithRequestID returns a copy carrying the request correlation ID.
func (e *AppError) WithRequestID(id string) *AppError {
	clone := *e
	clone.RequestID = id
	return &clone
}

func newError(code Code, message, detail string, err error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// IncompleteInput reports classification attempted on incomplete symptom data.
// This is a programming error on the documented call paths.
func IncompleteInput(detail string) *AppError {
	return newError(CodeIncompleteInput, "symptom report is incomplete", detail, nil)
}

func InvalidTransition(from, to string) *AppError {
	return newError(CodeInvalidTransition, "status change is not allowed",
		fmt.Sprintf("transition %s -> %s is not permitted", from, to), nil)
}

func PastReminder(at time.Time) *AppError {
	return newError(CodePastReminder, "reminder time must be in the future",
		fmt.Sprintf("requested reminder time %s is not after now", at.Format(time.RFC3339)), nil)
}

func ConcurrencyConflict(resource string, err error) *AppError {
	return newError(CodeConcurrencyConflict, "another update raced this one, please retry",
		fmt.Sprintf("concurrent mutation on %s", resource), err)
}

func CapacityExceeded(queue string) *AppError {
	return newError(CodeCapacityExceeded, "system is at capacity, please retry shortly",
		fmt.Sprintf("intake queue %q is full", queue), nil)
}

func ExtractionTimeout(err error) *AppError {
	return newError(CodeExtractionTimeout, "symptom extraction timed out", "extraction budget exceeded", err)
}

func ClassificationTimeout(err error) *AppError {
	return newError(CodeClassificationTimeout, "assessment timed out", "classification budget exceeded", err)
}

// Authentication rejections are deliberately opaque: no case data leaks.
func Authentication(err error) *AppError {
	return newError(CodeAuthentication, "authentication failed", "", err)
}

func Authorization(err error) *AppError {
	return newError(CodeAuthorization, "not authorized", "", err)
}

func NotFound(resource string, err error) *AppError {
	return newError(CodeNotFound, fmt.Sprintf("%s not found", resource), "", err)
}

func BadRequest(message string, err error) *AppError {
	return newError(CodeBadRequest, message, "", err)
}

func Internal(err error) *AppError {
	return newError(CodeInternal, "internal server error", "", err)
}

// CodeOf extracts the error code, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var app *AppError
	return errors.As(err, &app) && app.Code == code
}

// AsAppError normalizes any error into an AppError for boundary reporting.
func AsAppError(err error) *AppError {
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	return Internal(err)
}
