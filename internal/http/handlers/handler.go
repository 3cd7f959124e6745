package handlers

import (
	"credit_engine/internal/service"
)

// HandlerConfig holds request-level knobs that are not engine state.
type HandlerConfig struct {
	SignupBonusCredits int64
}

type Handler struct {
	Engine *service.Engine
	cfg    HandlerConfig
}

func NewHandler(eng *service.Engine, cfg HandlerConfig) *Handler {
	return &Handler{Engine: eng, cfg: cfg}
}

// getUserID reads the user id the JWT middleware stored in the context.
func getUserID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, v > 0
	case float64:
		return int64(v), v > 0
	default:
		return 0, false
	}
}
