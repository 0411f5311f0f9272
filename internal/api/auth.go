package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schemapanel/internal/client"
)

const sessionMaxAge = 7 * 24 * 3600

// LoginHandler проверяет логин у бэкенда и раскладывает пользователя по cookie.
func LoginHandler(p *Panel) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		u, err := p.Backend.Authenticate(c.Request.Context(), body.Username, body.Password)
		var status *client.ServerStatusError
		if errors.As(err, &status) {
			p.Log.Info("login rejected", zap.String("username", body.Username))
			c.JSON(http.StatusUnauthorized, gin.H{"error": status.Message})
			return
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		for name, v := range map[string]string{
			UserIDCookie: string(u.ID),
			"username":   u.Username,
			"type":       u.Type,
			"auth":       "true",
		} {
			c.SetCookie(name, v, sessionMaxAge, "/", "", false, true)
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "user": u})
	}
}

// LogoutHandler стирает cookie сессии.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range []string{UserIDCookie, "username", "type", "auth"} {
			c.SetCookie(name, "", -1, "/", "", false, true)
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}
