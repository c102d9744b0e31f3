// Package handler exposes the HTTP endpoints, binding requests and
// delegating to the biz services.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/internal/pkg/httputils"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/internal/unibot/upload"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
	"github.com/kart-io/unibot/pkg/response"
)

// Multipart field names for account images.
const (
	fieldProfileImage = "profile_image"
	fieldStudentCard  = "student_card_image"
)

// AuthHandler handles registration, login and account self-service.
type AuthHandler struct {
	svc     *biz.AuthService
	uploads *upload.Store
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *biz.AuthService, uploads *upload.Store) *AuthHandler {
	return &AuthHandler{svc: svc, uploads: uploads}
}

// Register handles student self-registration. The body is a multipart form
// so the profile and student card images can ride along.
func (h *AuthHandler) Register(c *gin.Context) {
	var req biz.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("%s", err.Error()), nil)
		return
	}

	profilePath, ok := h.saveImage(c, fieldProfileImage, upload.ProfileDir, "profile")
	if !ok {
		return
	}
	cardPath, ok := h.saveImage(c, fieldStudentCard, upload.CardDir, "card")
	if !ok {
		h.uploads.Delete(profilePath)
		return
	}
	req.ProfileImagePath = profilePath
	req.StudentCardImagePath = cardPath

	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		h.uploads.Delete(profilePath)
		h.uploads.Delete(cardPath)
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, response.SuccessWithMessage(
		"Registration submitted. Your account is pending approval.", user))
}

// Login handles credential login and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req biz.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("%s", err.Error()), nil)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		logger.Warnw("login failed", "email", req.Email, "error", err)
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, resp)
}

// Logout revokes the caller's current token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := auth.TokenFromContext(c.Request.Context())
	if token == "" {
		httputils.WriteResponse(c, errors.ErrUnauthorized, nil)
		return
	}

	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		logger.Errorw("logout failed", "error", err)
		httputils.WriteResponse(c, errors.ErrInternal.WithMessage("Failed to log out"), nil)
		return
	}
	httputils.WriteResponse(c, nil, response.SuccessWithMessage("Logged out", nil))
}

// Me returns the caller's own profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()))
	httputils.WriteResponse(c, err, user)
}

// UpdateProfile updates the caller's profile. All optional fields are
// overwritten from the form, so an omitted field clears the stored value.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req biz.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("%s", err.Error()), nil)
		return
	}

	userID := auth.UserIDFromContext(c.Request.Context())

	profilePath, ok := h.saveImage(c, fieldProfileImage, upload.ProfileDir, "profile")
	if !ok {
		return
	}
	req.ProfileImagePath = profilePath

	var oldImage string
	if profilePath != "" {
		if current, err := h.svc.Me(c.Request.Context(), userID); err == nil {
			oldImage = current.ProfileImagePath
		}
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.uploads.Delete(profilePath)
		httputils.WriteResponse(c, err, nil)
		return
	}

	// A replaced profile image leaves its predecessor orphaned on disk.
	if profilePath != "" && oldImage != "" && oldImage != profilePath {
		h.uploads.Delete(oldImage)
	}
	httputils.WriteResponse(c, nil, user)
}

// ChangePassword changes the caller's password after verifying the current
// one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req biz.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage("%s", err.Error()), nil)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), auth.UserIDFromContext(c.Request.Context()), &req); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, response.SuccessWithMessage("Password changed", nil))
}

// saveImage stores an optional multipart image and reports whether the
// request may proceed. On failure it has already written the error response.
func (h *AuthHandler) saveImage(c *gin.Context, field, subDir, prefix string) (string, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		// Absent file fields are fine.
		return "", true
	}

	path, err := h.uploads.Save(file, subDir, prefix)
	if err != nil {
		logger.Errorw("image upload failed", "field", field, "error", err)
		httputils.WriteResponse(c, errors.ErrInternal.WithMessage("Failed to store uploaded image"), nil)
		return "", false
	}
	return path, true
}
