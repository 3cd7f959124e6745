package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"

	"github.com/gin-gonic/gin"
)

// GetBalance returns the caller's balance. The configured signup bonus is
// granted the first time a wallet with no earned credits is seen.
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	ctx := c.Request.Context()

	w, err := h.Engine.Wallet.Wallet(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	balance := w.Balance()

	if h.cfg.SignupBonusCredits > 0 && w.TotalCreditsEarned == 0 {
		res, err := h.Engine.Wallet.GrantSignupBonus(ctx, userID, h.cfg.SignupBonusCredits)
		switch {
		case err == nil:
			balance = res.Balance
		case errors.Is(err, domain.ErrAlreadyRedeemed):
		default:
			logger.Warn("signup bonus not granted", "user_id", userID, "error", err)
		}
	}

	c.JSON(http.StatusOK, balance)
}

// GetHistory lists ledger entries newest first.
// Query: page, limit, type (credit, debit or a source).
func (h *Handler) GetHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		badRequest(c, "page must be a number")
		return
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		badRequest(c, "limit must be a number")
		return
	}

	result, err := h.Engine.Ledger.ListForUser(c.Request.Context(), userID, page, limit, c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type consumeRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// Consume debits a caller-priced amount.
func (h *Handler) Consume(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.Engine.Wallet.Consume(c.Request.Context(), userID, req.Amount, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ledger_entry_id": res.EntryID(),
		"entries":         res.Entries,
		"balance":         res.Balance,
	})
}

// Reverse undoes one of the caller's debits.
func (h *Handler) Reverse(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || entryID <= 0 {
		badRequest(c, "invalid ledger entry id")
		return
	}

	res, err := h.Engine.Wallet.ReverseForUser(c.Request.Context(), userID, entryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
