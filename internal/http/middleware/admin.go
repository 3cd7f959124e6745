package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Admin lets through only callers isAdmin accepts. JWT must run first.
func Admin(isAdmin func(userID int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		if userID == 0 || !isAdmin(userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin access required"})
			return
		}
		c.Next()
	}
}
