package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
)

type users struct {
	db *gorm.DB
}

func newUsers(db *gorm.DB) *users {
	return &users{db}
}

// Create creates a new user.
func (u *users) Create(ctx context.Context, user *model.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

// Update updates an existing user.
func (u *users) Update(ctx context.Context, user *model.User) error {
	return u.db.WithContext(ctx).Save(user).Error
}

// Delete deletes a user by ID.
func (u *users) Delete(ctx context.Context, id uint64) error {
	return u.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{}).Error
}

// Get retrieves a user by ID.
func (u *users) Get(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := u.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := u.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByStudentID retrieves a user by student ID.
func (u *users) GetByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	var user model.User
	if err := u.db.WithContext(ctx).Where("student_id = ?", studentID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmployeeID retrieves a user by employee ID.
func (u *users) GetByEmployeeID(ctx context.Context, employeeID string) (*model.User, error) {
	var user model.User
	if err := u.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List lists users, optionally restricted to the given roles.
func (u *users) List(ctx context.Context, roles []authz.Role) ([]*model.User, error) {
	query := u.db.WithContext(ctx).Model(&model.User{})
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}

	var list []*model.User
	if err := query.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FirstByRole returns the oldest approved, unblocked user holding the role.
func (u *users) FirstByRole(ctx context.Context, role authz.Role) (*model.User, error) {
	var user model.User
	err := u.db.WithContext(ctx).
		Where("role = ? AND is_approved = ? AND is_blocked = ?", role, true, false).
		Order("created_at ASC, id ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
