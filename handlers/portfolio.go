package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"trade-simulator/apperr"
)

type positionView struct {
	Stock string
	Qty   float64
	Name  string
	Price float64
	Total float64
}

func (h *Handler) index(c *gin.Context) {
	sess := currentSession(c)
	ctx := c.Request.Context()

	holdings, err := h.store.Holdings(ctx, sess.UserID)
	if err != nil {
		h.apology(c, err)
		return
	}

	var positions []positionView
	var marketValue float64
	for _, hold := range holdings {
		q, err := h.quotes.Lookup(ctx, hold.Stock)
		if err != nil {
			h.apology(c, err)
			return
		}
		total := q.Price * hold.Qty
		positions = append(positions, positionView{
			Stock: hold.Stock,
			Qty:   hold.Qty,
			Name:  q.Name,
			Price: q.Price,
			Total: total,
		})
		marketValue += total
	}

	user, err := h.store.UserByID(ctx, sess.UserID)
	if err != nil {
		h.apology(c, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Flash":     h.popFlash(c, sess),
		"Positions": positions,
		"Cash":      user.Cash,
		"Patrimony": user.Cash + marketValue,
	})
}

// parseShares validates the share-count form field: present, numeric,
// positive and whole.
func parseShares(raw string) (float64, error) {
	if raw == "" {
		return 0, apperr.Invalid("must provide quantity")
	}
	qty, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.Invalid("quantity must be a number")
	}
	if qty <= 0 {
		return 0, apperr.Invalid("quantity must be greater than zero")
	}
	if qty != math.Trunc(qty) {
		return 0, apperr.Invalid("quantity must be a whole number")
	}
	return qty, nil
}

func (h *Handler) buyForm(c *gin.Context) {
	c.HTML(http.StatusOK, "buy.html", gin.H{"Flash": h.popFlash(c, currentSession(c))})
}

func (h *Handler) buy(c *gin.Context) {
	sess := currentSession(c)

	symbol := strings.TrimSpace(c.PostForm("symbol"))
	if symbol == "" {
		h.apology(c, apperr.Invalid("must provide symbol"))
		return
	}
	qty, err := parseShares(c.PostForm("shares"))
	if err != nil {
		h.apology(c, err)
		return
	}

	q, err := h.quotes.Lookup(c.Request.Context(), symbol)
	if err != nil {
		h.apology(c, err)
		return
	}

	if err := h.store.Buy(c.Request.Context(), sess.UserID, q.Symbol, qty, q.Price); err != nil {
		h.apology(c, err)
		return
	}

	h.flashAndRedirect(c, sess, "Purchased!", "/")
}

func (h *Handler) sellForm(c *gin.Context) {
	sess := currentSession(c)

	symbols, err := h.store.HeldSymbols(c.Request.Context(), sess.UserID)
	if err != nil {
		h.apology(c, err)
		return
	}

	c.HTML(http.StatusOK, "sell.html", gin.H{
		"Flash":   h.popFlash(c, sess),
		"Symbols": symbols,
	})
}

func (h *Handler) sell(c *gin.Context) {
	sess := currentSession(c)

	symbol := strings.TrimSpace(c.PostForm("stock"))
	if symbol == "" {
		h.apology(c, apperr.Invalid("must provide symbol"))
		return
	}
	qty, err := parseShares(c.PostForm("shares"))
	if err != nil {
		h.apology(c, err)
		return
	}

	q, err := h.quotes.Lookup(c.Request.Context(), symbol)
	if err != nil {
		h.apology(c, err)
		return
	}

	if err := h.store.Sell(c.Request.Context(), sess.UserID, q.Symbol, qty, q.Price); err != nil {
		h.apology(c, err)
		return
	}

	h.flashAndRedirect(c, sess, "Sold!", "/")
}
