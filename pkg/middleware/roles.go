package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
)

// RequireRoles rejects authenticated callers whose role claim is not in the
// allowed set. It must run after Auth.
func RequireRoles(roles ...authz.Role) gin.HandlerFunc {
	allowed := make(map[authz.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := auth.ClaimsFromContext(c.Request.Context())
		if claims == nil {
			abortWith(c, errors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[authz.Role(claims.Role)]; !ok {
			abortWith(c, errors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireStaff admits every role that can see the user management panel.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(
		authz.RoleAdmin,
		authz.RoleSubAdmin,
		authz.RoleStudentOrganizer,
	)
}
