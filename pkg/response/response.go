// Package response provides the unified API response envelope.
// All HTTP endpoints respond with this format for consistency.
package response

import (
	"net/http"

	"github.com/kart-io/unibot/pkg/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success).
	Code int `json:"code"`

	// Message is a human-readable message.
	Message string `json:"message"`

	// Data contains the response payload (nil for errors).
	Data any `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing.
	RequestID string `json:"request_id,omitempty"`

	httpStatus int
}

// Success creates a successful response with data.
func Success(data any) *Response {
	return &Response{
		Code:       0,
		Message:    "success",
		Data:       data,
		httpStatus: http.StatusOK,
	}
}

// SuccessWithMessage creates a successful response with a custom message.
func SuccessWithMessage(message string, data any) *Response {
	return &Response{
		Code:       0,
		Message:    message,
		Data:       data,
		httpStatus: http.StatusOK,
	}
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:       e.Code,
		Message:    e.Message,
		httpStatus: e.HTTPStatus(),
	}
}

// WithRequestID attaches the request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// HTTPStatus returns the HTTP status code for this response.
func (r *Response) HTTPStatus() int {
	if r.httpStatus == 0 {
		if r.Code == 0 {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	}
	return r.httpStatus
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}
