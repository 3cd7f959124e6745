package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) RedeemPromo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code is required")
		return
	}

	res, err := h.Engine.Promo.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
