package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"localevents/utils"
)

// Context keys set by Authenticate.
const (
	UserIDKey = "userId"
	EmailKey  = "email"
)

// Authenticate rejects the request with 401 unless it carries a valid token,
// either raw or as "Bearer <token>" in the Authorization header.
func Authenticate(tokens *utils.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if after, ok := strings.CutPrefix(raw, "Bearer "); ok {
			raw = strings.TrimSpace(after)
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}
