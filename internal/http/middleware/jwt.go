package middleware

import (
	"net/http"
	"strings"

	"credit_engine/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT resolves the caller from a Bearer token and stores it as "user_id".
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing bearer token"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": err.Error()})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
