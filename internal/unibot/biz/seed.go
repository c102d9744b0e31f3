package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"
	"golang.org/x/crypto/bcrypt"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/unibot/store"
)

// EnsureAdmin creates the administrator account on first start so the role
// hierarchy always has a root. Existing accounts are left untouched.
func EnsureAdmin(ctx context.Context, factory store.Factory, email, password, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := factory.Users().GetByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		FullName:     name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         authz.RoleAdmin,
		IsApproved:   true,
	}
	if err := factory.Users().Create(ctx, admin); err != nil {
		return err
	}

	logger.Infow("seeded administrator account", "email", email)
	return nil
}
