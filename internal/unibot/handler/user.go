package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/pkg/httputils"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
)

// UserHandler handles the staff user-management endpoints.
type UserHandler struct {
	svc *biz.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *biz.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create creates a new account with the role named in the request, subject
// to the caller's creation rules.
func (h *UserHandler) Create(c *gin.Context) {
	var req biz.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("%s", err.Error()), nil)
		return
	}

	user, err := h.svc.Create(c.Request.Context(), callerRole(c), &req)
	httputils.WriteResponse(c, err, user)
}

// List returns the accounts visible to the caller's role.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context(), callerRole(c))
	httputils.WriteResponse(c, err, users)
}

// Approve marks a pending account as approved.
func (h *UserHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.Approve(c.Request.Context(), callerRole(c), id)
	httputils.WriteResponse(c, err, user)
}

// ToggleBlock flips an account's blocked flag.
func (h *UserHandler) ToggleBlock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.ToggleBlock(c.Request.Context(), callerRole(c), id)
	httputils.WriteResponse(c, err, user)
}

// Delete removes an account.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.svc.Delete(c.Request.Context(), callerRole(c), id)
	httputils.WriteResponse(c, err, gin.H{"deleted": err == nil})
}

func callerRole(c *gin.Context) authz.Role {
	claims := auth.ClaimsFromContext(c.Request.Context())
	if claims == nil {
		return ""
	}
	return authz.Role(claims.Role)
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("Invalid %s", name), nil)
		return 0, false
	}
	return id, true
}
