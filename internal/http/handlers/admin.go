package handlers

import (
	"net/http"
	"strconv"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"

	"github.com/gin-gonic/gin"
)

type adjustRequest struct {
	UserID     int64             `json:"user_id" binding:"required"`
	Amount     int64             `json:"amount" binding:"required"`
	CreditType domain.CreditType `json:"credit_type" binding:"required"`
	Reason     string            `json:"reason" binding:"required"`
}

// AdjustBalance credits or debits a user on an admin's behalf.
func (h *Handler) AdjustBalance(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id, amount, credit_type and reason are required")
		return
	}

	res, err := h.Engine.Wallet.AdjustBalance(c.Request.Context(), req.UserID, req.Amount, req.CreditType, req.Reason, adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AdminReverse undoes any debit regardless of owner or reversal policy.
func (h *Handler) AdminReverse(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || entryID <= 0 {
		badRequest(c, "invalid ledger entry id")
		return
	}

	res, err := h.Engine.Wallet.Reverse(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("admin reversal", "admin_id", adminID, "entry_id", entryID)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) VerifyLedger(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		badRequest(c, "invalid user id")
		return
	}

	report, err := h.Engine.Ledger.Verify(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type createPromoRequest struct {
	Code      string           `json:"code" binding:"required"`
	Type      domain.PromoType `json:"type" binding:"required"`
	Value     int64            `json:"value" binding:"required"`
	MaxUses   int              `json:"max_uses"`
	ExpiresAt *time.Time       `json:"expires_at"`
}

func (h *Handler) CreatePromo(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req createPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code, type and value are required")
		return
	}

	p := &domain.PromoCode{
		Code:      req.Code,
		Type:      req.Type,
		Value:     req.Value,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.Engine.Promo.CreatePromoCode(c.Request.Context(), p, adminID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ExpireSubscriptions(c *gin.Context) {
	n, err := h.Engine.Subscriptions.ExpireSubscriptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

func (h *Handler) UserAudit(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		badRequest(c, "invalid user id")
		return
	}
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		badRequest(c, "limit must be a number")
		return
	}

	logs, err := h.Engine.Audit.GetUserAuditLogs(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
