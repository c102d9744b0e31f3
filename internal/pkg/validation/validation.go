// Package validation installs custom binding rules on gin's validator
// engine.
package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kart-io/unibot/internal/pkg/authz"
)

// Register installs the custom rules. Call once at startup, before the
// router binds any request.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("rolekey", validRoleKey)
}

// validRoleKey accepts the API role keys ("student", "sub-admin", ...).
func validRoleKey(fl validator.FieldLevel) bool {
	_, ok := authz.RoleFromKey(fl.Field().String())
	return ok
}
