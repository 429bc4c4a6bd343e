package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/config"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/middleware"
)

// LoginHandler checks the dashboard password and sets the session cookie.
func LoginHandler(cfg *config.Config, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		password := c.PostForm("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning().Str("ip", c.ClientIP()).Msg("failed login attempt")
			c.JSON(http.StatusUnauthorized, errorResponse("invalid password"))
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.AuthCookie, "true", 0, "/", "", false, true)
		logger.Info().Str("ip", c.ClientIP()).Msg("user logged in")
		c.Redirect(http.StatusSeeOther, "/")
	}
}
