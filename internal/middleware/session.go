package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ContextSessionID = "session_id"

type SessionConfig struct {
	CookieName string
	Secure     bool
	// MaxAge of the cookie; zero makes it a browser-session cookie.
	MaxAge time.Duration
}

// Session gives every browser an opaque session id cookie. The id keys the
// server-side session store; the token itself never reaches the browser.
func Session(config SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(config.CookieName)
		if _, perr := uuid.Parse(id); err != nil || perr != nil {
			id = uuid.New().String()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     config.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(config.MaxAge.Seconds()),
				Secure:   config.Secure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(ContextSessionID, id)
		c.Next()
	}
}

// SessionID returns the id set by Session.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
