package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AuthCookie = "authenticated"
	LoginPath  = "/login"
)

// publicPrefixes are reachable without the session cookie.
var publicPrefixes = []string{"/css/", "/js/", "/static/", "/auth/login", "/api/ingest"}

// AuthMiddleware requires the 'authenticated=true' cookie set at login.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == LoginPath || path == "/Login.html" {
			c.Next()
			return
		}
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		if cookie, err := c.Cookie(AuthCookie); err == nil && cookie == "true" {
			c.Next()
			return
		}

		// API and AJAX callers get 401, browsers go to the login page.
		if strings.HasPrefix(path, "/api/") ||
			c.GetHeader("X-Requested-With") == "XMLHttpRequest" ||
			c.ContentType() == "application/json" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Redirect(http.StatusSeeOther, LoginPath)
		c.Abort()
	}
}

// IngestTokenMiddleware checks the Bearer token of trigger calls. An empty
// token disables the check.
func IngestTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
