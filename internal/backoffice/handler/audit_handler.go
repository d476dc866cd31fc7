package handler

import (
	"net/http"

	"github.com/arcfin/loanledger/internal/repository"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler serves the operator's read side: per-facility history with a
// record count, independent of the public API's pagination defaults.
type AuditHandler struct {
	historySvc  *service.HistoryService
	historyRepo *repository.HistoryRepository
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(historySvc *service.HistoryService, historyRepo *repository.HistoryRepository) *AuditHandler {
	return &AuditHandler{historySvc: historySvc, historyRepo: historyRepo}
}

// PositionHistory godoc
// GET /admin/facilities/:id/position-history?page=1&limit=50
func (h *AuditHandler) PositionHistory(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	records, err := h.historySvc.PositionHistory(c.Request.Context(), facilityID, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not fetch position history")
		return
	}

	total, err := h.historyRepo.CountByFacility(c.Request.Context(), facilityID)
	if err != nil {
		respondDomainError(c, err, "could not count history")
		return
	}
	respondList(c, records, total, page, limit)
}

// Transactions godoc
// GET /admin/facilities/:id/transactions?page=1&limit=50
func (h *AuditHandler) Transactions(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	records, err := h.historySvc.Transactions(c.Request.Context(), facilityID, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not fetch transactions")
		return
	}
	respondList(c, records, len(records), page, limit)
}
