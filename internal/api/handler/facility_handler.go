package handler

import (
	"net/http"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FacilityHandler serves facility endpoints.
type FacilityHandler struct {
	facilitySvc *service.FacilityService
}

// NewFacilityHandler creates a FacilityHandler.
func NewFacilityHandler(facilitySvc *service.FacilityService) *FacilityHandler {
	return &FacilityHandler{facilitySvc: facilitySvc}
}

// Create godoc
// POST /api/facilities
func (h *FacilityHandler) Create(c *gin.Context) {
	var body struct {
		CreditAgreementID string  `json:"credit_agreement_id" binding:"required"`
		FacilityName      string  `json:"facility_name"       binding:"required"`
		FacilityType      string  `json:"facility_type"       binding:"required"`
		CommitmentAmount  string  `json:"commitment_amount"   binding:"required"`
		Currency          string  `json:"currency"            binding:"required"`
		StartDate         string  `json:"start_date"          binding:"required"`
		MaturityDate      string  `json:"maturity_date"       binding:"required"`
		InterestType      string  `json:"interest_type"       binding:"required"`
		BaseRate          string  `json:"base_rate"`
		Margin            string  `json:"margin"`
		InitialLenderID   *string `json:"initial_lender_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	agreementID, err := uuid.Parse(body.CreditAgreementID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AGREEMENT_ID", "invalid credit_agreement_id format")
		return
	}
	commitment, err := decimal.NewFromString(body.CommitmentAmount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "commitment_amount must be a decimal string")
		return
	}
	startDate, err := time.Parse(time.RFC3339, body.StartDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "start_date must be RFC 3339")
		return
	}
	maturityDate, err := time.Parse(time.RFC3339, body.MaturityDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "maturity_date must be RFC 3339")
		return
	}
	baseRate, margin := decimal.Zero, decimal.Zero
	if body.BaseRate != "" {
		if baseRate, err = decimal.NewFromString(body.BaseRate); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_RATE", "base_rate must be a decimal string")
			return
		}
	}
	if body.Margin != "" {
		if margin, err = decimal.NewFromString(body.Margin); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_RATE", "margin must be a decimal string")
			return
		}
	}
	var initialLender *uuid.UUID
	if body.InitialLenderID != nil {
		lid, err := uuid.Parse(*body.InitialLenderID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_LENDER_ID", "invalid initial_lender_id format")
			return
		}
		initialLender = &lid
	}

	facility, err := h.facilitySvc.CreateFacility(c.Request.Context(), domain.CreateFacilityRequest{
		CreditAgreementID: agreementID,
		FacilityName:      body.FacilityName,
		FacilityType:      domain.FacilityType(body.FacilityType),
		CommitmentAmount:  commitment,
		Currency:          body.Currency,
		StartDate:         startDate,
		MaturityDate:      maturityDate,
		InterestType:      domain.InterestType(body.InterestType),
		BaseRate:          baseRate,
		Margin:            margin,
		InitialLenderID:   initialLender,
		ActorID:           actorID(c),
	})
	if err != nil {
		respondDomainError(c, err, "could not create facility")
		return
	}
	respondSuccess(c, http.StatusCreated, facility)
}

// GetByID godoc
// GET /api/facilities/:id
func (h *FacilityHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	facility, err := h.facilitySvc.GetFacility(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch facility")
		return
	}
	respondSuccess(c, http.StatusOK, facility)
}

// ListByAgreement godoc
// GET /api/agreements/:id/facilities
func (h *FacilityHandler) ListByAgreement(c *gin.Context) {
	agreementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid agreement id")
		return
	}

	facilities, err := h.facilitySvc.ListFacilities(c.Request.Context(), agreementID)
	if err != nil {
		respondDomainError(c, err, "could not list facilities")
		return
	}
	respondSuccess(c, http.StatusOK, facilities)
}

// Update godoc
// PATCH /api/facilities/:id
func (h *FacilityHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	var body struct {
		FacilityName     *string `json:"facility_name"`
		CommitmentAmount *string `json:"commitment_amount"`
		Currency         *string `json:"currency"`
		MaturityDate     *string `json:"maturity_date"`
		BaseRate         *string `json:"base_rate"`
		Margin           *string `json:"margin"`
		Status           *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	req := domain.UpdateFacilityRequest{
		FacilityName: body.FacilityName,
		Currency:     body.Currency,
		ActorID:      actorID(c),
	}
	if body.CommitmentAmount != nil {
		commitment, err := decimal.NewFromString(*body.CommitmentAmount)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "commitment_amount must be a decimal string")
			return
		}
		req.CommitmentAmount = &commitment
	}
	if body.MaturityDate != nil {
		maturity, err := time.Parse(time.RFC3339, *body.MaturityDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "maturity_date must be RFC 3339")
			return
		}
		req.MaturityDate = &maturity
	}
	if body.BaseRate != nil {
		rate, err := decimal.NewFromString(*body.BaseRate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_RATE", "base_rate must be a decimal string")
			return
		}
		req.BaseRate = &rate
	}
	if body.Margin != nil {
		margin, err := decimal.NewFromString(*body.Margin)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_RATE", "margin must be a decimal string")
			return
		}
		req.Margin = &margin
	}
	if body.Status != nil {
		status := domain.FacilityStatus(*body.Status)
		req.Status = &status
	}

	facility, err := h.facilitySvc.UpdateFacility(c.Request.Context(), id, req)
	if err != nil {
		respondDomainError(c, err, "could not update facility")
		return
	}
	respondSuccess(c, http.StatusOK, facility)
}
