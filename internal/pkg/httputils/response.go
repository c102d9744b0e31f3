// Package httputils provides HTTP utility functions shared by handlers.
package httputils

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/unibot/pkg/errors"
	"github.com/kart-io/unibot/pkg/middleware"
	"github.com/kart-io/unibot/pkg/response"
)

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring a consistent envelope.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		var resp *response.Response
		if errno, ok := err.(*errors.Errno); ok {
			resp = response.Err(errno)
		} else {
			resp = response.Err(errors.ErrInternal.WithMessage("%s", err.Error()))
		}
		c.JSON(resp.HTTPStatus(), resp.WithRequestID(middleware.GetRequestID(c)))
		return
	}

	// data may already be a prepared *response.Response.
	if resp, ok := data.(*response.Response); ok {
		c.JSON(resp.HTTPStatus(), resp.WithRequestID(middleware.GetRequestID(c)))
		return
	}

	resp := response.Success(data)
	c.JSON(resp.HTTPStatus(), resp.WithRequestID(middleware.GetRequestID(c)))
}
