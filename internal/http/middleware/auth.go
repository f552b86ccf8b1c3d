// README: Bearer-token auth middleware. Resolves the caller to {id, role}
// and stashes it on the request context; handlers enforce ownership.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"raahi/internal/identity"
	"raahi/internal/types"
)

const (
	ctxKeyID   = "caller_id"
	ctxKeyRole = "caller_role"
)

func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		ident, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxKeyID, string(ident.ID))
		c.Set(ctxKeyRole, string(ident.Role))
		c.Next()
	}
}

// CallerID returns the authenticated identity id, empty if unauthenticated.
func CallerID(c *gin.Context) types.ID {
	return types.ID(c.GetString(ctxKeyID))
}

// CallerRole returns the authenticated role, empty if unauthenticated.
func CallerRole(c *gin.Context) identity.Role {
	return identity.Role(c.GetString(ctxKeyRole))
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := CallerRole(c)
		for _, r := range roles {
			if got == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed"})
	}
}
