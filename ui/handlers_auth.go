package ui

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"custdash/ui/middleware"
)

type loginPage struct {
	Error string
}

func (s *Server) handleLoginPage(c *gin.Context) {
	if sess, ok := middleware.Current(c); ok && sess.Authenticated {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.renderTemplate(c, http.StatusOK, "login.html", loginPage{})
}

// handleLogin checks the shared password; a wrong one re-renders the form with no lockout.
func (s *Server) handleLogin(c *gin.Context) {
	sess, ok := middleware.Current(c)
	if !ok {
		s.respondError(c, errSessionMissing)
		return
	}

	given := c.PostForm("password")
	if subtle.ConstantTimeCompare([]byte(given), []byte(s.config.Auth.Password)) != 1 {
		log.Printf("[Auth] Failed login for session %s from %s", sess.ID, c.ClientIP())
		s.renderTemplate(c, http.StatusUnauthorized, "login.html", loginPage{Error: "Password incorrect"})
		return
	}

	if err := s.sessions.Authenticate(sess.ID); err != nil {
		s.respondError(c, err)
		return
	}
	log.Printf("[Auth] Session %s logged in", sess.ID)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleLogout(c *gin.Context) {
	if sess, ok := middleware.Current(c); ok {
		s.sessions.Delete(sess.ID)
		log.Printf("[Auth] Session %s logged out", sess.ID)
	}
	c.SetCookie(s.config.Session.CookieName, "", -1, "/", "", s.config.Session.Secure, true)
	c.Redirect(http.StatusSeeOther, "/login")
}
