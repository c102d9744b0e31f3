package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
	"github.com/kart-io/unibot/pkg/response"
)

// authScheme is the Authorization header scheme.
const authScheme = "Bearer"

// Auth requires a valid bearer token. Requests without one, or whose token
// fails verification or has been revoked, are rejected with 401. Verified
// claims and the raw token are injected into the request context.
func Auth(a auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWith(c, errors.ErrUnauthorized.WithMessage("Missing or malformed authorization header"))
			return
		}

		claims, err := a.Verify(c.Request.Context(), token)
		if err != nil {
			abortWith(c, verifyErrno(err))
			return
		}

		injectAuth(c, claims, token)
		c.Next()
	}
}

// OptionalAuth verifies a bearer token when one is present but lets
// anonymous requests through untouched. A token that is present yet invalid
// is still rejected, so callers never proceed with a half-trusted identity.
func OptionalAuth(a auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := a.Verify(c.Request.Context(), token)
		if err != nil {
			abortWith(c, verifyErrno(err))
			return
		}

		injectAuth(c, claims, token)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func verifyErrno(err error) *errors.Errno {
	if errno, ok := err.(*errors.Errno); ok {
		return errno
	}
	return errors.ErrUnauthorized.WithMessage("Invalid or expired token")
}

func injectAuth(c *gin.Context, claims *auth.Claims, token string) {
	ctx := auth.InjectAuth(c.Request.Context(), claims, token)
	c.Request = c.Request.WithContext(ctx)
}

func abortWith(c *gin.Context, errno *errors.Errno) {
	resp := response.Err(errno).WithRequestID(GetRequestID(c))
	c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
}
