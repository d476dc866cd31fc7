package handler

import (
	"net/http"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionHandler serves lender position endpoints.
type PositionHandler struct {
	positionSvc *service.PositionService
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positionSvc *service.PositionService) *PositionHandler {
	return &PositionHandler{positionSvc: positionSvc}
}

// Create godoc
// POST /api/facilities/:id/positions
// Body: {"lender_id":"uuid","amount":"400000.00","share":"40"}
func (h *PositionHandler) Create(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	var body struct {
		LenderID string `json:"lender_id" binding:"required"`
		Amount   string `json:"amount"    binding:"required"`
		Share    string `json:"share"     binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	lenderID, err := uuid.Parse(body.LenderID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_LENDER_ID", "invalid lender_id format")
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}
	share, err := decimal.NewFromString(body.Share)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SHARE", "share must be a decimal string")
		return
	}

	position, err := h.positionSvc.CreatePosition(c.Request.Context(), domain.CreatePositionRequest{
		FacilityID: facilityID,
		LenderID:   lenderID,
		Amount:     amount,
		Share:      share,
		ActorID:    actorID(c),
	})
	if err != nil {
		respondDomainError(c, err, "could not create position")
		return
	}
	respondSuccess(c, http.StatusCreated, position)
}

// ListByFacility godoc
// GET /api/facilities/:id/positions
func (h *PositionHandler) ListByFacility(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	positions, err := h.positionSvc.ListPositions(c.Request.Context(), facilityID)
	if err != nil {
		respondDomainError(c, err, "could not list positions")
		return
	}
	respondSuccess(c, http.StatusOK, positions)
}

// GetByID godoc
// GET /api/positions/:id
func (h *PositionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid position id")
		return
	}

	position, err := h.positionSvc.GetPosition(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch position")
		return
	}
	respondSuccess(c, http.StatusOK, position)
}

// Update godoc
// PATCH /api/positions/:id
// Body: any of {"amount":"...","share":"...","status":"COMPLETED"}
func (h *PositionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid position id")
		return
	}

	var body struct {
		Amount *string `json:"amount"`
		Share  *string `json:"share"`
		Status *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	req := domain.UpdatePositionRequest{ActorID: actorID(c)}
	if body.Amount != nil {
		amount, err := decimal.NewFromString(*body.Amount)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
			return
		}
		req.Amount = &amount
	}
	if body.Share != nil {
		share, err := decimal.NewFromString(*body.Share)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SHARE", "share must be a decimal string")
			return
		}
		req.Share = &share
	}
	if body.Status != nil {
		status := domain.PositionStatus(*body.Status)
		req.Status = &status
	}

	position, err := h.positionSvc.UpdatePosition(c.Request.Context(), id, req)
	if err != nil {
		respondDomainError(c, err, "could not update position")
		return
	}
	respondSuccess(c, http.StatusOK, position)
}
