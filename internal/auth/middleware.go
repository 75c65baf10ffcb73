package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authenticate rejects requests without a valid bearer token of any kind
// and stores the principal in the request context.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticate(c, secret); !ok {
			return
		}
		c.Next()
	}
}

// RequireStaff rejects requests without a valid staff or admin bearer token
// and stores the principal in the request context.
func RequireStaff(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authenticate(c, secret)
		if !ok {
			return
		}
		if !p.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only staff can perform this action"})
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, secret string) (*Principal, bool) {
	p, err := ParseBearer(c.GetHeader("Authorization"), secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth error: " + err.Error()})
		return nil, false
	}
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
	return p, true
}
