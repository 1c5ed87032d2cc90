package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures and provider side (5xx) errors
	ErrTransport = errors.New("provider transport failure")
	// ErrMalformedResponse is returned when a response cannot be understood
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrInvalidRequest is returned when the provider rejects the request (4xx)
	ErrInvalidRequest = errors.New("provider rejected request")
)

// Error is a failure reported by or while talking to a payment provider
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a provider error
func NewError(code, message string, statusCode int, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ErrorForStatus picks the sentinel matching an HTTP status code
func ErrorForStatus(statusCode int) error {
	if statusCode >= 400 && statusCode < 500 {
		return ErrInvalidRequest
	}
	return ErrTransport
}
