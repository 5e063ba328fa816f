package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trade-simulator/apperr"
)

func (h *Handler) quoteForm(c *gin.Context) {
	c.HTML(http.StatusOK, "quote.html", gin.H{"Flash": h.popFlash(c, currentSession(c))})
}

func (h *Handler) quoteLookup(c *gin.Context) {
	symbol := strings.TrimSpace(c.PostForm("stock"))
	if symbol == "" {
		h.apology(c, apperr.Invalid("must provide symbol"))
		return
	}

	q, err := h.quotes.Lookup(c.Request.Context(), symbol)
	if err != nil {
		h.apology(c, err)
		return
	}

	c.HTML(http.StatusOK, "quoted.html", gin.H{"Quote": q})
}

type historyRow struct {
	Stock      string
	Qty        float64
	SharePrice float64
	Timestamp  time.Time
}

func (h *Handler) history(c *gin.Context) {
	sess := currentSession(c)

	trades, err := h.store.History(c.Request.Context(), sess.UserID)
	if err != nil {
		h.apology(c, err)
		return
	}

	rows := make([]historyRow, 0, len(trades))
	for _, trade := range trades {
		rows = append(rows, historyRow{
			Stock: trade.Stock,
			Qty:   trade.Qty,
			// total over quantity; both are negative for sells, so the
			// per-share price always shows positive
			SharePrice: trade.Price / trade.Qty,
			Timestamp:  trade.Timestamp,
		})
	}

	c.HTML(http.StatusOK, "history.html", gin.H{
		"Flash": h.popFlash(c, sess),
		"Rows":  rows,
	})
}
