package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

// ContextHubKey is the gin context key storing the hub a request operates on.
const ContextHubKey = "currentHub"

// SelfAccess lets a pupil through when the :id route parameter is their own student id.
const SelfAccess = "SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.Role]struct{})
	for _, a := range allowed {
		if a == SelfAccess {
			allowSelf = true
			continue
		}
		allowedRoles[models.Role(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && claims.Role == models.RolePupil {
			if targetID := c.Param("id"); targetID != "" && targetID == strconv.Itoa(claims.StudentID) {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// HubScope resolves the hub a request operates on. Hub sessions are pinned to
// the hub in their token; super admins name one with the hub_id query parameter.
func HubScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		hubID := claims.HubID
		if claims.Role == models.RoleSuperAdmin {
			hubID = strings.TrimSpace(c.Query("hub_id"))
		}
		if hubID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no hub selected"))
			c.Abort()
			return
		}

		c.Set(ContextHubKey, hubID)
		c.Next()
	}
}

// HubID returns the hub resolved by HubScope.
func HubID(c *gin.Context) string {
	if v, exists := c.Get(ContextHubKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
