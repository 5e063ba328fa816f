package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"trade-simulator/apperr"
	"trade-simulator/session"
)

// clearSession drops any existing session before a login or registration
// attempt, and removes the cookie.
func (h *Handler) clearSession(c *gin.Context) {
	token, err := c.Cookie(session.CookieName)
	if err != nil {
		return
	}
	if sid, err := session.ParseToken(h.secret, token); err == nil {
		if err := h.sessions.Destroy(c.Request.Context(), sid); err != nil {
			h.log.Error("failed to destroy session", "error", err)
		}
	}
	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
}

// startSession logs the user in: creates the server-side record, stores the
// flash and sets the signed cookie.
func (h *Handler) startSession(c *gin.Context, userID uint, flash string) error {
	sess, err := h.sessions.Create(c.Request.Context(), userID)
	if err != nil {
		return err
	}

	sess.Flash = flash
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		return err
	}

	token, err := session.SignToken(h.secret, sess.ID, h.ttl)
	if err != nil {
		return err
	}

	c.SetCookie(session.CookieName, token, int(h.ttl/time.Second), "/", "", false, true)
	return nil
}

func (h *Handler) loginForm(c *gin.Context) {
	h.clearSession(c)
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (h *Handler) login(c *gin.Context) {
	h.clearSession(c)

	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" {
		h.apology(c, apperr.Invalid("must provide username"))
		return
	}
	if password == "" {
		h.apology(c, apperr.Invalid("must provide password"))
		return
	}

	user, err := h.store.UserByName(c.Request.Context(), username)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			h.apology(c, apperr.Unauthorized("invalid username and/or password"))
			return
		}
		h.apology(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		h.apology(c, apperr.Unauthorized("invalid username and/or password"))
		return
	}

	if err := h.startSession(c, user.ID, "logged in!"); err != nil {
		h.apology(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) logout(c *gin.Context) {
	h.clearSession(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) registerForm(c *gin.Context) {
	h.clearSession(c)
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (h *Handler) register(c *gin.Context) {
	h.clearSession(c)

	username := c.PostForm("username")
	password1 := c.PostForm("password1")
	password2 := c.PostForm("password2")

	if username == "" {
		h.apology(c, apperr.Invalid("must provide username"))
		return
	}
	if password1 == "" {
		h.apology(c, apperr.Invalid("must provide password"))
		return
	}
	if password2 == "" {
		h.apology(c, apperr.Invalid("must confirm password"))
		return
	}
	if password1 != password2 {
		h.apology(c, apperr.Invalid("passwords must match"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password1), bcrypt.DefaultCost)
	if err != nil {
		h.apology(c, err)
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), username, string(hash))
	if err != nil {
		h.apology(c, err)
		return
	}

	if err := h.startSession(c, user.ID, "You registered!"); err != nil {
		h.apology(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
