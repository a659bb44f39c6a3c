package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireScope is a middleware that checks if the granted scope covers the
// required one. Scope strings are space- or comma-delimited.
func RequireScope(requiredScope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted, exists := c.Get("scopes")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient_scope"})
			c.Abort()
			return
		}

		grantedScope, ok := granted.(string)
		if !ok || !scopeCovers(grantedScope, requiredScope) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":          "insufficient_scope",
				"required_scope": requiredScope,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// scopeCovers reports whether granted contains required as one of its
// delimited entries.
func scopeCovers(granted, required string) bool {
	for _, s := range strings.FieldsFunc(granted, func(r rune) bool {
		return r == ' ' || r == ','
	}) {
		if s == required {
			return true
		}
	}
	return false
}
