package biz

import (
	"context"
	stderrors "errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/pkg/errors"
)

// CreateUserRequest carries an admin-panel account creation.
type CreateUserRequest struct {
	FirstName     string `json:"firstName" binding:"required"`
	LastName      string `json:"lastName" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	Role          string `json:"role" binding:"required,rolekey"`
	Department    string `json:"department"`
	Semester      string `json:"semester"`
	CNIC          string `json:"cnic"`
	ContactNumber string `json:"contactNumber"`
	StudentID     string `json:"studentId"`
	EmployeeID    string `json:"employeeId"`
	Position      string `json:"position"`
}

// UserService handles admin-panel user management. Every decision goes
// through the authz ruleset.
type UserService struct {
	store store.Factory
}

// NewUserService creates a new UserService.
func NewUserService(store store.Factory) *UserService {
	return &UserService{store: store}
}

// Create creates an approved account with the requested role, subject to the
// caller's creation rights and per-role field rules.
func (s *UserService) Create(ctx context.Context, caller authz.Role, req *CreateUserRequest) (*model.User, error) {
	role, ok := authz.RoleFromKey(req.Role)
	if !ok {
		return nil, errors.ErrBadRequest.WithMessage("Invalid role")
	}
	if !authz.CanCreate(caller, role) {
		return nil, errors.ErrForbidden
	}

	studentID := strings.TrimSpace(req.StudentID)
	employeeID := strings.TrimSpace(req.EmployeeID)
	position := strings.TrimSpace(req.Position)

	if role == authz.RoleStudent {
		if studentID == "" {
			return nil, errors.ErrBadRequest.WithMessage("Student ID is required for students")
		}
	} else if role.IsStaff() {
		if employeeID == "" || position == "" {
			return nil, errors.ErrBadRequest.WithMessage("Employee ID and position are required for staff users")
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, errors.ErrEmailExists
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrInternal.WithCause(err)
	}

	if studentID != "" {
		if _, err := s.store.Users().GetByStudentID(ctx, studentID); err == nil {
			return nil, errors.ErrStudentIDExists
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInternal.WithCause(err)
		}
	}
	if employeeID != "" {
		if _, err := s.store.Users().GetByEmployeeID(ctx, employeeID); err == nil {
			return nil, errors.ErrEmployeeIDExists
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInternal.WithCause(err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	user := &model.User{
		FullName:     strings.TrimSpace(req.FirstName) + " " + strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsApproved:   true,
		Department:   req.Department,
		CNIC:         req.CNIC,
		Contact:      req.ContactNumber,
	}

	// Field rules: students carry semester and student ID, staff carry
	// employee ID and position.
	if role == authz.RoleStudent {
		user.Semester = req.Semester
		user.StudentID = studentID
	} else if role.IsStaff() {
		user.EmployeeID = employeeID
		user.Position = position
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return user, nil
}

// List returns the accounts visible to the caller: everyone for ADMIN and
// SUB_ADMIN, students only for STUDENT_ORGANIZER.
func (s *UserService) List(ctx context.Context, caller authz.Role) ([]*model.User, error) {
	switch caller {
	case authz.RoleAdmin, authz.RoleSubAdmin:
		users, err := s.store.Users().List(ctx, nil)
		if err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		return users, nil
	case authz.RoleStudentOrganizer:
		users, err := s.store.Users().List(ctx, []authz.Role{authz.RoleStudent})
		if err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		return users, nil
	}
	return nil, errors.ErrForbidden
}

// Approve marks the target account approved.
func (s *UserService) Approve(ctx context.Context, caller authz.Role, userID uint64) (*model.User, error) {
	user, err := s.manageable(ctx, caller, userID)
	if err != nil {
		return nil, err
	}

	user.IsApproved = true
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return user, nil
}

// ToggleBlock flips the blocked flag of the target account and returns the
// updated user.
func (s *UserService) ToggleBlock(ctx context.Context, caller authz.Role, userID uint64) (*model.User, error) {
	user, err := s.manageable(ctx, caller, userID)
	if err != nil {
		return nil, err
	}

	user.IsBlocked = !user.IsBlocked
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return user, nil
}

// Delete removes the target account.
func (s *UserService) Delete(ctx context.Context, caller authz.Role, userID uint64) error {
	user, err := s.manageable(ctx, caller, userID)
	if err != nil {
		return err
	}

	if err := s.store.Users().Delete(ctx, user.ID); err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	return nil
}

// manageable loads the target user and checks the caller may manage it.
func (s *UserService) manageable(ctx context.Context, caller authz.Role, userID uint64) (*model.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}
	if !authz.CanManage(caller, user.Role) {
		return nil, errors.ErrForbidden
	}
	return user, nil
}
