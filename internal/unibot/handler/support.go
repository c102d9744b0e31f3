package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/unibot/internal/pkg/httputils"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/internal/unibot/realtime"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
)

// SupportHandler handles the student-consultant support chat endpoints.
type SupportHandler struct {
	svc *biz.SupportService
	hub *realtime.Hub
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(svc *biz.SupportService, hub *realtime.Hub) *SupportHandler {
	return &SupportHandler{svc: svc, hub: hub}
}

// EnsureThread returns the caller's support thread, opening one with the
// default consultant on first contact.
func (h *SupportHandler) EnsureThread(c *gin.Context) {
	thread, err := h.svc.EnsureThread(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()))
	httputils.WriteResponse(c, err, thread)
}

// ListThreads returns a consultant's threads with their latest messages.
func (h *SupportHandler) ListThreads(c *gin.Context) {
	threads, err := h.svc.ListThreads(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()))
	httputils.WriteResponse(c, err, threads)
}

// ThreadMessages returns a thread's messages, oldest first.
func (h *SupportHandler) ThreadMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	messages, err := h.svc.ThreadMessages(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), id)
	httputils.WriteResponse(c, err, messages)
}

// postMessageRequest is the REST body for posting a support message.
type postMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// PostMessage appends a message to a thread and broadcasts it to connected
// participants.
func (h *SupportHandler) PostMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("Empty message"), nil)
		return
	}

	message, err := h.svc.PostMessage(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), id, req.Text)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	h.hub.BroadcastMessage(message)
	httputils.WriteResponse(c, nil, message)
}
