package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"custdash/domain/core"
	"custdash/internal/session"
)

// sessionKey is the gin context key holding the request's session.Session.
const sessionKey = "custdash.session"

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// Sessions attaches a session to every request, creating one (and its cookie) when the cookie
// is missing, malformed or expired.
func Sessions(manager *session.Manager, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var current session.Session
		found := false

		if raw, err := c.Cookie(cookie.Name); err == nil {
			if id, err := core.ParseSessionID(raw); err == nil {
				if s, err := manager.Get(id); err == nil {
					current, found = s, true
				}
			}
		}
		if !found {
			current = manager.Create()
			log.Printf("[Session] New session %s for %s", current.ID, c.ClientIP())
		}

		// refresh the cookie so its lifetime follows activity
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookie.Name, current.ID.String(), int(cookie.MaxAge.Seconds()), "/", "", cookie.Secure, true)

		c.Set(sessionKey, current)
		c.Next()
	}
}

// Current returns the session attached by Sessions.
func Current(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}

// RequireAuth sends unauthenticated HTML requests to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, ok := Current(c); !ok || !s.Authenticated {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAuthAPI answers unauthenticated API requests with 401 JSON.
func RequireAuthAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, ok := Current(c); !ok || !s.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "UNAUTHORIZED",
				"message": "log in to use the dashboard API",
			})
			return
		}
		c.Next()
	}
}
