package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/liverelay/pkg/response"
	"github.com/aura-webinar/liverelay/pkg/utils"
)

// HeaderAdminKey carries the operator key on admin endpoints.
const HeaderAdminKey = "X-Admin-Key"

// AdminKey returns a middleware that checks X-Admin-Key against a bcrypt
// hash. With an empty hash every admin request is refused.
func AdminKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			response.ServiceUnavailable(c, "admin key not configured")
			c.Abort()
			return
		}
		key := c.GetHeader(HeaderAdminKey)
		if key == "" {
			response.Unauthorized(c, "missing admin key")
			c.Abort()
			return
		}
		if !utils.CheckSecret(key, keyHash) {
			response.Forbidden(c, "invalid admin key")
			c.Abort()
			return
		}
		c.Next()
	}
}
