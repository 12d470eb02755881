package middleware

import (
	"net/http"

	"github.com/careerforge/careerforge/internal/logger"
	"github.com/gin-gonic/gin"
)

const userIDHeader = "X-User-ID"

// userIDKey is the gin context key the verified caller id is stored under.
const userIDKey = "user_id"

// Identity extracts the verified caller id set by the authentication layer in
// front of this service. Requests without one are rejected; authentication
// itself is not this service's concern.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(userIDHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "missing caller identity",
			})
			return
		}

		c.Set(userIDKey, id)
		ctx := logger.SetUserID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID returns the verified caller id for the request.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
