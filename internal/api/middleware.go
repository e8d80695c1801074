package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"societyhub/internal/access"
	"societyhub/internal/auth"
	"societyhub/internal/metrics"
	"societyhub/internal/model"
)

const (
	ctxProfileID = "profile_id"
	ctxRole      = "role"
)

// Authenticate validates the Bearer token and stores the caller's
// identity in the request context.
func Authenticate(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be Bearer {token}"})
			return
		}
		profileID, role, err := tokens.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxProfileID, profileID)
		c.Set(ctxRole, string(role))
		c.Next()
	}
}

// Authorize rejects callers whose role lacks the capability. Handlers
// behind it can still apply finer ownership checks.
func Authorize(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := actor(c)
		if !access.Can(role, capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// StaffOnly admits any staff role regardless of specific capability.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := actor(c)
		if !access.IsStaff(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
			return
		}
		c.Next()
	}
}

// Observe records per-route request counts bucketed by status class.
func Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		class := strconv.Itoa(c.Writer.Status()/100) + "xx"
		metrics.IncHTTP(route, class)
	}
}

func actor(c *gin.Context) (int64, model.Role) {
	id, _ := c.Get(ctxProfileID)
	role, _ := c.Get(ctxRole)
	profileID, _ := id.(int64)
	roleName, _ := role.(string)
	return profileID, model.Role(roleName)
}
