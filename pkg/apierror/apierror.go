package apierror

import (
	"fmt"
	"net/http"
)

const (
	CodeBadRequest    = "KO_BAD_REQUEST"
	CodeAuth          = "KO_AUTH"
	CodeForbidden     = "KO_FORBIDDEN"
	CodeNotFound      = "KO_NOT_FOUND"
	CodeNotAllowed    = "KO_NOT_ALLOWED"
	CodeConflict      = "KO_CONFLICT"
	CodeGone          = "KO_GONE"
	CodeUnprocessable = "KO_UNPROCESSABLE_PAYLOAD"
	CodeRateLimited   = "KO_RATE_LIMITED"
	CodeCantPerform   = "ERR_CANT_PERFORM"
	CodeTimeout       = "KO_TIMEOUT"
)

type APIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Reason   any    `json:"reason,omitempty"`
	Status   int    `json:"-"`
	Critical bool   `json:"is_critical"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Reason != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Reason)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, reason any, status int) *APIError {
	return &APIError{Code: code, Message: message, Reason: reason, Status: status}
}

// CodeForStatus returns the default machine code for an HTTP status.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeAuth
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeNotAllowed
	case http.StatusConflict:
		return CodeConflict
	case http.StatusGone:
		return CodeGone
	case http.StatusUnprocessableEntity:
		return CodeUnprocessable
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeTimeout
	default:
		return CodeCantPerform
	}
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "Wrong credentials"
	}
	return New(CodeAuth, message, nil, http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	if message == "" {
		message = "Permission denied."
	}
	return New(CodeForbidden, message, nil, http.StatusForbidden)
}

func NotFound(message string) *APIError {
	if message == "" {
		message = "Resource not found."
	}
	return New(CodeNotFound, message, nil, http.StatusNotFound)
}

func Conflict(message string) *APIError {
	if message == "" {
		message = "Conflict with current state."
	}
	return New(CodeConflict, message, nil, http.StatusConflict)
}

func Gone(message string) *APIError {
	if message == "" {
		message = "Access to the resource is no longer available."
	}
	return New(CodeGone, message, nil, http.StatusGone)
}

func BadRequest(message string, reason any) *APIError {
	if message == "" {
		message = "Bad request."
	}
	return New(CodeBadRequest, message, reason, http.StatusBadRequest)
}

func Unprocessable(reason any) *APIError {
	return New(CodeUnprocessable, "Validation Error", reason, http.StatusUnprocessableEntity)
}

func Internal() *APIError {
	e := New(CodeCantPerform, "Cannot perform operation.", nil, http.StatusInternalServerError)
	e.Critical = true
	return e
}
