package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/response"
)

// RequireRole returns a middleware that allows only tokens carrying one of
// roles. It must run after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !lo.Contains(roles, claims.Role) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
