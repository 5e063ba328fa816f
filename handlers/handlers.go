package handlers

import (
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin"

	"trade-simulator/apperr"
	"trade-simulator/middleware"
	"trade-simulator/quote"
	"trade-simulator/session"
	"trade-simulator/store"
)

type Handler struct {
	store    *store.Store
	sessions session.Store
	quotes   quote.Provider
	log      *slog.Logger
	secret   string
	ttl      time.Duration
}

func New(st *store.Store, sessions session.Store, quotes quote.Provider, log *slog.Logger, secret string, ttl time.Duration) *Handler {
	return &Handler{
		store:    st,
		sessions: sessions,
		quotes:   quotes,
		log:      log,
		secret:   secret,
		ttl:      ttl,
	}
}

// NewRouter builds a gin engine with templates loaded and every route
// registered.
func NewRouter(h *Handler, templates string) *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.HTML(http.StatusInternalServerError, "apology.html", gin.H{
			"Message": "internal server error",
			"Status":  http.StatusInternalServerError,
		})
	}))
	router.SetFuncMap(template.FuncMap{"usd": USD})
	router.LoadHTMLGlob(templates)
	router.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "apology.html", gin.H{
			"Message": "not found",
			"Status":  http.StatusNotFound,
		})
	})
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(noCache())

	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)
	router.GET("/register", h.registerForm)
	router.POST("/register", h.register)

	auth := router.Group("/", middleware.LoginRequired(h.sessions, h.secret))
	{
		auth.GET("/", h.index)
		auth.GET("/buy", h.buyForm)
		auth.POST("/buy", h.buy)
		auth.GET("/sell", h.sellForm)
		auth.POST("/sell", h.sell)
		auth.GET("/quote", h.quoteForm)
		auth.POST("/quote", h.quoteLookup)
		auth.GET("/history", h.history)
	}
}

// USD formats a dollar amount for display, e.g. 9800 -> "$9,800.00".
func USD(v float64) string {
	return money.New(int64(math.Round(v*100)), money.USD).Display()
}

func noCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}

// apology renders the uniform error page with the status mapped from the
// error's kind. Internal errors are logged and shown with a generic message.
func (h *Handler) apology(c *gin.Context, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
		msg = "something went wrong"
	}
	c.HTML(status, "apology.html", gin.H{"Message": msg, "Status": status})
	c.Abort()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(middleware.SessionKey).(*session.Session)
}

func (h *Handler) flashAndRedirect(c *gin.Context, sess *session.Session, msg, location string) {
	sess.Flash = msg
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.log.Error("failed to save session", "error", err)
	}
	c.Redirect(http.StatusSeeOther, location)
}

// popFlash returns the pending flash message and clears it, so it renders
// exactly once.
func (h *Handler) popFlash(c *gin.Context, sess *session.Session) string {
	if sess.Flash == "" {
		return ""
	}
	msg := sess.Flash
	sess.Flash = ""
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.log.Error("failed to save session", "error", err)
	}
	return msg
}
