package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kart-io/unibot/internal/pkg/httputils"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
)

// ChatHandler handles the AI chat endpoint.
type ChatHandler struct {
	svc *biz.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *biz.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat answers a question. Authenticated callers get a personalized,
// persisted exchange; anonymous callers get a stateless answer.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req biz.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// A missing message is a validation failure; anything else means
		// the body itself did not parse.
		var vErrs validator.ValidationErrors
		if stderrors.As(err, &vErrs) {
			httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("Empty message"), nil)
		} else {
			httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("Invalid request body"), nil)
		}
		return
	}

	resp, err := h.svc.Chat(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), &req)
	httputils.WriteResponse(c, err, resp)
}
