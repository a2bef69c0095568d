package middlewares

import (
	"net/http"

	"github.com/Valerijkk/defect-tracker-lite/internal/auth"
	"github.com/gin-gonic/gin"
)

// RequireRole enforces the access policy for role-gated routes. It must run
// after RequireAuth so the identity is already on the context.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)

		if !ok || identity.Role == "" {
			abortUnauthorized(c, "unauthorized", "Missing identity context")
			return
		}

		if err := auth.Authorize(identity, required); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": required + " role required",
				},
			})
			return
		}
		c.Next()
	}
}
