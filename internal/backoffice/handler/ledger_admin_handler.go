package handler

import (
	"net/http"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerAdminHandler serves the operator-only mutations: facility resets and
// manual position adjustments.
type LedgerAdminHandler struct {
	adminSvc *service.AdminService
}

// NewLedgerAdminHandler creates a LedgerAdminHandler.
func NewLedgerAdminHandler(adminSvc *service.AdminService) *LedgerAdminHandler {
	return &LedgerAdminHandler{adminSvc: adminSvc}
}

// ResetFacility godoc
// POST /admin/facilities/:id/reset
// Deletes the facility and everything under it. Destructive; no undo.
func (h *LedgerAdminHandler) ResetFacility(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	if err := h.adminSvc.ResetFacility(c.Request.Context(), facilityID); err != nil {
		respondDomainError(c, err, "could not reset facility")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"facility_id": facilityID, "reset": true})
}

// AdjustPosition godoc
// POST /admin/positions/:id/adjust
// Body: {"delta":"-25000.00","reason":"booking error correction"}
func (h *LedgerAdminHandler) AdjustPosition(c *gin.Context) {
	positionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid position id")
		return
	}

	var body struct {
		Delta   string `json:"delta"  binding:"required"`
		Reason  string `json:"reason" binding:"required"`
		ActorID string `json:"actor_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	delta, err := decimal.NewFromString(body.Delta)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DELTA", "delta must be a signed decimal string")
		return
	}
	actor := uuid.Nil
	if body.ActorID != "" {
		if actor, err = uuid.Parse(body.ActorID); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_ACTOR_ID", "invalid actor_id format")
			return
		}
	}

	position, err := h.adminSvc.AdjustPosition(c.Request.Context(), positionID, domain.AdjustPositionRequest{
		Delta:   delta,
		Reason:  body.Reason,
		ActorID: actor,
	})
	if err != nil {
		respondDomainError(c, err, "could not adjust position")
		return
	}
	respondSuccess(c, http.StatusOK, position)
}
