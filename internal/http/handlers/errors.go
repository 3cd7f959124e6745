package handlers

import (
	"net/http"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[string]int{
	domain.KindInsufficientBalance:    http.StatusPaymentRequired,
	domain.KindToolNotFound:           http.StatusNotFound,
	domain.KindProRequired:            http.StatusForbidden,
	domain.KindInvalidAmount:          http.StatusBadRequest,
	domain.KindInvalidCode:            http.StatusNotFound,
	domain.KindCodeExpired:            http.StatusGone,
	domain.KindCodeExhausted:          http.StatusConflict,
	domain.KindAlreadyRedeemed:        http.StatusConflict,
	domain.KindNotImplemented:         http.StatusNotImplemented,
	domain.KindStorageConflict:        http.StatusServiceUnavailable,
	domain.KindNotFound:               http.StatusNotFound,
	domain.KindAlreadyReversed:        http.StatusConflict,
	domain.KindNotReversible:          http.StatusUnprocessableEntity,
	domain.KindInvalidExperienceLevel: http.StatusBadRequest,
	domain.KindInvalidCreditType:      http.StatusBadRequest,
	domain.KindAlreadyExists:          http.StatusConflict,
	domain.KindInvalidSource:          http.StatusBadRequest,
	domain.KindInvalidFilter:          http.StatusBadRequest,
}

var messageByKind = map[string]string{
	domain.KindStorageConflict: "the request collided with another update, please retry",
	domain.KindInternal:        "internal error",
}

// respondError writes {"error": kind, "message": text}. Storage and other
// unexpected errors are logged, never echoed.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg, ok := messageByKind[kind]
	if !ok {
		msg = err.Error()
	}
	if kind == domain.KindInternal || kind == domain.KindStorageConflict {
		logger.Error("request failed",
			"request_id", c.GetString("request_id"),
			"path", c.FullPath(),
			"kind", kind,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": msg})
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user not found"})
}
