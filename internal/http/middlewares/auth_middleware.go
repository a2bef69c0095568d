package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Valerijkk/defect-tracker-lite/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenValidator interface {
	Validate(raw string) (auth.Identity, error)
}

type AuthMiddleware struct {
	jwt TokenValidator
}

func NewAuthMiddleware(jwt TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "unauthorized", "Missing or invalid access token")
			return
		}

		identity, err := m.jwt.Validate(raw)
		if err != nil {
			// surface the precise cause so clients can tell an expired
			// session from a broken one
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				abortUnauthorized(c, "token_expired", "Access token has expired")
			case errors.Is(err, auth.ErrTokenBadSignature):
				abortUnauthorized(c, "token_bad_signature", "Access token signature is invalid")
			default:
				abortUnauthorized(c, "token_malformed", "Access token could not be parsed")
			}
			return
		}

		// Stash the validated identity on the context
		c.Set(ctxUserIDKey, identity.Subject)
		c.Set(ctxRoleKey, identity.Role)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	id, ok := UserIDFromContext(c)
	if !ok {
		return auth.Identity{}, false
	}

	role, ok := RoleFromContext(c)
	if !ok {
		return auth.Identity{}, false
	}

	return auth.Identity{Subject: id, Role: role}, true
}
