// Package errors provides the structured error system used by all unibot
// HTTP handlers and services.
//
// An Errno carries a business error code, the HTTP status to respond with,
// and a human-readable message. Handlers return predefined Errno values
// (optionally specialized with WithMessage/WithCause) and the response layer
// maps them to the unified JSON envelope.
package errors

import (
	"fmt"
	"net/http"
)

// Errno represents a structured error with code, HTTP status and message.
type Errno struct {
	// Code is the unique business error code (0 = success).
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// cause is the underlying error.
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Errno) HTTPStatus() int {
	if e.HTTP == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTP
}

// WithMessage returns a copy of the Errno with a custom message.
func (e *Errno) WithMessage(format string, args ...any) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: fmt.Sprintf(format, args...),
		cause:   e.cause,
	}
}

// WithCause returns a copy of the Errno wrapping the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: e.Message,
		cause:   cause,
	}
}

// Is reports whether target is an Errno with the same code, so that
// errors.Is works across WithMessage/WithCause copies.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t.Code == e.Code
}

// Generic errors. Codes follow the AABBCCC convention where
// AA=service (20: unibot), BB=category aligned with the HTTP class.
var (
	ErrBadRequest   = &Errno{Code: 2001001, HTTP: http.StatusBadRequest, Message: "Invalid request"}
	ErrUnauthorized = &Errno{Code: 2002001, HTTP: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden    = &Errno{Code: 2003001, HTTP: http.StatusForbidden, Message: "Not authorized"}
	ErrNotFound     = &Errno{Code: 2004001, HTTP: http.StatusNotFound, Message: "Resource not found"}
	ErrConflict     = &Errno{Code: 2005001, HTTP: http.StatusConflict, Message: "Resource conflict"}
	ErrInternal     = &Errno{Code: 2007001, HTTP: http.StatusInternalServerError, Message: "Internal server error"}
)

// Authentication and account errors.
var (
	ErrInvalidCredentials = &Errno{Code: 2002002, HTTP: http.StatusUnauthorized, Message: "Invalid email or password"}
	ErrTokenRevoked       = &Errno{Code: 2002003, HTTP: http.StatusUnauthorized, Message: "Token has been revoked"}
	ErrAccountPending     = &Errno{Code: 2003002, HTTP: http.StatusForbidden, Message: "Your account is pending approval"}
	ErrAccountBlocked     = &Errno{Code: 2003003, HTTP: http.StatusForbidden, Message: "Your account has been blocked"}
	ErrPasswordMismatch   = &Errno{Code: 2001002, HTTP: http.StatusBadRequest, Message: "Password confirmation mismatch"}
	ErrWrongPassword      = &Errno{Code: 2001003, HTTP: http.StatusBadRequest, Message: "Current password incorrect"}
)

// Resource errors.
var (
	ErrUserNotFound         = &Errno{Code: 2004002, HTTP: http.StatusNotFound, Message: "User not found"}
	ErrConversationNotFound = &Errno{Code: 2004003, HTTP: http.StatusNotFound, Message: "Conversation not found"}
	ErrThreadNotFound       = &Errno{Code: 2004004, HTTP: http.StatusNotFound, Message: "Thread not found"}
	ErrMessageNotFound      = &Errno{Code: 2004005, HTTP: http.StatusNotFound, Message: "Message not found"}
)

// Conflict errors for unique identity fields.
var (
	ErrEmailExists      = &Errno{Code: 2005002, HTTP: http.StatusConflict, Message: "Email already exists"}
	ErrStudentIDExists  = &Errno{Code: 2005003, HTTP: http.StatusConflict, Message: "Student ID already exists"}
	ErrEmployeeIDExists = &Errno{Code: 2005004, HTTP: http.StatusConflict, Message: "Employee ID already exists"}
)

// Upstream / availability errors.
var (
	ErrNoConsultant = &Errno{Code: 2010001, HTTP: http.StatusServiceUnavailable, Message: "No consultant available"}
)
