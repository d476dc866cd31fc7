package handler

import (
	"net/http"
	"strconv"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondDomainError translates a domain error into its HTTP class:
// not-found 404, validation 422, illegal state transition 409, version
// conflict 409 (the only retryable one), directory outage 502. Anything
// else is an internal error hidden behind the fallback message.
func respondDomainError(c *gin.Context, err error, fallback string) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
	case domain.IsValidation(err):
		respondError(c, http.StatusUnprocessableEntity, "ERR_VALIDATION", err.Error())
	case domain.IsStateTransition(err):
		respondError(c, http.StatusConflict, "ERR_STATE_TRANSITION", err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "ERR_VERSION_CONFLICT", err.Error())
	case domain.IsExternal(err):
		respondError(c, http.StatusBadGateway, "ERR_DIRECTORY_UNAVAILABLE", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", fallback)
	}
}

// actorID reads the X-Actor-ID header set by the upstream gateway. The
// ledger records it in history rows; authentication itself happens before
// requests reach this service.
func actorID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetHeader("X-Actor-ID"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// parsePagination reads ?page and ?limit query params with sane defaults.
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return page, limit
}
