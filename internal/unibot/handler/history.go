package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/unibot/internal/pkg/httputils"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/response"
)

// HistoryHandler handles AI chat history browsing and pruning.
type HistoryHandler struct {
	svc *biz.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc *biz.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// ListConversations returns the caller's conversations from the last year.
func (h *HistoryHandler) ListConversations(c *gin.Context) {
	list, err := h.svc.ListConversations(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()))
	httputils.WriteResponse(c, err, list)
}

// GetConversation returns one conversation with its full message list.
func (h *HistoryHandler) GetConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.GetConversation(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), id)
	httputils.WriteResponse(c, err, detail)
}

// HistoryDates returns the caller's chat activity grouped by day.
func (h *HistoryHandler) HistoryDates(c *gin.Context) {
	days, err := h.svc.HistoryDates(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()))
	httputils.WriteResponse(c, err, days)
}

// PairsForDate returns the prompt/reply pairs of one day.
func (h *HistoryHandler) PairsForDate(c *gin.Context) {
	pairs, err := h.svc.PairsForDate(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), c.Param("date"))
	httputils.WriteResponse(c, err, pairs)
}

// DeleteDate removes all of the caller's messages on one day.
func (h *HistoryHandler) DeleteDate(c *gin.Context) {
	err := h.svc.DeleteDate(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), c.Param("date"))
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, response.SuccessWithMessage("History deleted", nil))
}

// DeletePair removes one prompt and its reply.
func (h *HistoryHandler) DeletePair(c *gin.Context) {
	id, ok := pathID(c, "promptId")
	if !ok {
		return
	}
	err := h.svc.DeletePair(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), id)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, response.SuccessWithMessage("Message pair deleted", nil))
}
