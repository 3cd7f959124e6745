package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type toolRequest struct {
	ToolID          string `json:"tool_id" binding:"required"`
	ExperienceLevel string `json:"experience_level"`
}

// Quote prices a tool without charging.
func (h *Handler) Quote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req toolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "tool_id is required")
		return
	}

	q, err := h.Engine.Pricing.Quote(c.Request.Context(), userID, req.ToolID, req.ExperienceLevel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Charge re-prices the tool and charges it. The response carries the
// ledger entry id to reverse if the tool run fails.
func (h *Handler) Charge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req toolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "tool_id is required")
		return
	}

	res, err := h.Engine.Charge.ChargeAndRecordUsage(c.Request.Context(), userID, req.ToolID, req.ExperienceLevel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
