package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards mutating settlement endpoints. An empty required key
// disables the check, which is how dev environments run.
func AdminKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		if c.GetHeader(AdminKeyHeader) != required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid admin key",
					"details": nil,
				},
			})
			return
		}
		c.Next()
	}
}
