package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-simulator/session"
)

// SessionKey is the gin context key under which the guard stores the
// resolved *session.Session.
const SessionKey = "session"

// LoginRequired resolves the session cookie and redirects anonymous
// requests to the login page.
func LoginRequired(sessions session.Store, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(session.CookieName)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		sid, err := session.ParseToken(secret, token)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), sid)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}
