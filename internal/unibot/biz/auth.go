// Package biz implements the business logic of the unibot backend on top of
// the store layer.
package biz

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
)

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 6

// RegisterRequest carries a student self-signup. Image paths are filled by
// the handler after storing the uploads.
type RegisterRequest struct {
	FullName   string `json:"full_name" form:"full_name" binding:"required"`
	Email      string `json:"email" form:"email" binding:"required,email"`
	Password   string `json:"password" form:"password" binding:"required,min=6"`
	Department string `json:"department" form:"department"`
	Semester   string `json:"semester" form:"semester"`
	CNIC       string `json:"cnic" form:"cnic"`
	Contact    string `json:"contact" form:"contact"`
	StudentID  string `json:"student_id" form:"student_id"`

	ProfileImagePath     string `json:"-" form:"-"`
	StudentCardImagePath string `json:"-" form:"-"`
}

// LoginRequest carries a login attempt.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

// UpdateProfileRequest carries a self-service profile update. Optional
// fields overwrite unconditionally: an empty value clears the stored one.
type UpdateProfileRequest struct {
	FirstName  string `json:"firstName" form:"firstName"`
	LastName   string `json:"lastName" form:"lastName"`
	Email      string `json:"email" form:"email"`
	Department string `json:"department" form:"department"`
	Semester   string `json:"semester" form:"semester"`
	CNIC       string `json:"cnic" form:"cnic"`
	Contact    string `json:"contact" form:"contact"`
	StudentID  string `json:"studentId" form:"studentId"`
	EmployeeID string `json:"employeeId" form:"employeeId"`
	Position   string `json:"position" form:"position"`

	ProfileImagePath string `json:"-" form:"-"`
}

// ChangePasswordRequest carries a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// AuthService handles registration, login and account self-service.
type AuthService struct {
	authn auth.Authenticator
	store store.Factory
}

// NewAuthService creates a new AuthService.
func NewAuthService(authn auth.Authenticator, store store.Factory) *AuthService {
	return &AuthService{authn: authn, store: store}
}

// Register creates a new student account pending approval.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, errors.ErrEmailExists
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrInternal.WithCause(err)
	}

	if req.StudentID != "" {
		if _, err := s.store.Users().GetByStudentID(ctx, req.StudentID); err == nil {
			return nil, errors.ErrStudentIDExists
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInternal.WithCause(err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	user := &model.User{
		FullName:             strings.TrimSpace(req.FullName),
		Email:                email,
		PasswordHash:         string(hash),
		Role:                 authz.RoleStudent,
		IsApproved:           false,
		Department:           req.Department,
		Semester:             req.Semester,
		CNIC:                 req.CNIC,
		Contact:              req.Contact,
		StudentID:            req.StudentID,
		ProfileImagePath:     req.ProfileImagePath,
		StudentCardImagePath: req.StudentCardImagePath,
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return user, nil
}

// Login verifies credentials and account state, then issues a token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.ErrInvalidCredentials
	}

	if !user.IsApproved {
		return nil, errors.ErrAccountPending
	}
	if user.IsBlocked {
		return nil, errors.ErrAccountBlocked
	}

	token, err := s.authn.Sign(ctx, strconv.FormatUint(user.ID, 10), user.Role.String())
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return &LoginResponse{
		Message: "Login successful",
		Token:   token.GetAccessToken(),
		User:    user,
	}, nil
}

// Logout revokes the presented token.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	return s.authn.Revoke(ctx, tokenString)
}

// Me returns the account for the given user ID.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies a self-service profile update.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, req *UpdateProfileRequest) (*model.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}

	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first != "" || last != "" {
		if fullName := strings.TrimSpace(first + " " + last); fullName != "" {
			user.FullName = fullName
		}
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && email != user.Email {
		if existing, err := s.store.Users().GetByEmail(ctx, email); err == nil && existing.ID != user.ID {
			return nil, errors.ErrEmailExists.WithMessage("Email already in use")
		}
		user.Email = email
	}

	user.Department = req.Department
	user.Semester = req.Semester
	user.CNIC = req.CNIC
	user.Contact = req.Contact
	user.StudentID = req.StudentID
	user.EmployeeID = req.EmployeeID
	user.Position = req.Position

	if req.ProfileImagePath != "" {
		user.ProfileImagePath = req.ProfileImagePath
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return user, nil
}

// ChangePassword verifies the current password and stores a new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, req *ChangePasswordRequest) error {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return errors.ErrUserNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return errors.ErrWrongPassword
	}
	if req.NewPassword != req.ConfirmPassword {
		return errors.ErrPasswordMismatch
	}
	if len(req.NewPassword) < minPasswordLen {
		return errors.ErrBadRequest.WithMessage("Password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	user.PasswordHash = string(hash)

	if err := s.store.Users().Update(ctx, user); err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	return nil
}
