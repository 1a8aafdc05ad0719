package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clipsync-server-go/internal/domain/auth"
)

// identityKey is the gin context key carrying the verified identity.
const identityKey = "auth.identity"

// AuthMiddleware verifies the bearer token (or ?token= for download links
// that cannot set headers) and attaches the identity to the context.
func AuthMiddleware(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			RespondError(c, http.StatusUnauthorized, "missing credentials", nil)
			c.Abort()
			return
		}
		identity, err := manager.Verify(c.Request.Context(), token)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// AdminMiddleware rejects non-admin identities. Must run after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil || !identity.IsAdmin {
			RespondError(c, http.StatusForbidden, "admin access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the verified identity attached by AuthMiddleware, or
// nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := value.(*auth.Identity)
	return identity
}

// RawToken returns the credential string the request carried, for endpoints
// that operate on the token itself (logout).
func RawToken(c *gin.Context) string {
	return extractToken(c)
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
