package handler

import (
	"net/http"

	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistoryHandler serves the read-only audit endpoints.
type HistoryHandler struct {
	historySvc *service.HistoryService
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(historySvc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historySvc: historySvc}
}

// PositionHistory godoc
// GET /api/facilities/:id/position-history?page=1&limit=50
func (h *HistoryHandler) PositionHistory(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	records, err := h.historySvc.PositionHistory(c.Request.Context(), facilityID, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not fetch position history")
		return
	}
	respondList(c, records, len(records), page, limit)
}

// Transactions godoc
// GET /api/facilities/:id/transactions?page=1&limit=50
func (h *HistoryHandler) Transactions(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	records, err := h.historySvc.Transactions(c.Request.Context(), facilityID, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not fetch transactions")
		return
	}
	respondList(c, records, len(records), page, limit)
}
