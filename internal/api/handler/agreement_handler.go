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

// AgreementHandler serves credit agreement endpoints.
type AgreementHandler struct {
	facilitySvc *service.FacilityService
}

// NewAgreementHandler creates an AgreementHandler.
func NewAgreementHandler(facilitySvc *service.FacilityService) *AgreementHandler {
	return &AgreementHandler{facilitySvc: facilitySvc}
}

// Create godoc
// POST /api/agreements
// Body: {"borrower_id":"uuid","lender_id":"uuid","amount":"10000000.00","currency":"USD",...}
func (h *AgreementHandler) Create(c *gin.Context) {
	var body struct {
		BorrowerID   string `json:"borrower_id"   binding:"required"`
		LenderID     string `json:"lender_id"     binding:"required"`
		Amount       string `json:"amount"        binding:"required"`
		Currency     string `json:"currency"      binding:"required"`
		StartDate    string `json:"start_date"    binding:"required"`
		MaturityDate string `json:"maturity_date" binding:"required"`
		InterestRate string `json:"interest_rate"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	borrowerID, err := uuid.Parse(body.BorrowerID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_BORROWER_ID", "invalid borrower_id format")
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
	rate := decimal.Zero
	if body.InterestRate != "" {
		if rate, err = decimal.NewFromString(body.InterestRate); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_RATE", "interest_rate must be a decimal string")
			return
		}
	}

	agreement, err := h.facilitySvc.CreateAgreement(c.Request.Context(), domain.CreateAgreementRequest{
		BorrowerID:   borrowerID,
		LenderID:     lenderID,
		Amount:       amount,
		Currency:     body.Currency,
		StartDate:    startDate,
		MaturityDate: maturityDate,
		InterestRate: rate,
		ActorID:      actorID(c),
	})
	if err != nil {
		respondDomainError(c, err, "could not create credit agreement")
		return
	}
	respondSuccess(c, http.StatusCreated, agreement)
}

// GetByID godoc
// GET /api/agreements/:id
func (h *AgreementHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid agreement id")
		return
	}

	agreement, err := h.facilitySvc.GetAgreement(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch credit agreement")
		return
	}
	respondSuccess(c, http.StatusOK, agreement)
}

// Amend godoc
// PATCH /api/agreements/:id
// Body: any of {"amount":"...","currency":"...","maturity_date":"..."}
func (h *AgreementHandler) Amend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid agreement id")
		return
	}

	var body struct {
		Amount       *string `json:"amount"`
		Currency     *string `json:"currency"`
		MaturityDate *string `json:"maturity_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	req := domain.AmendAgreementRequest{Currency: body.Currency, ActorID: actorID(c)}
	if body.Amount != nil {
		amount, err := decimal.NewFromString(*body.Amount)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
			return
		}
		req.Amount = &amount
	}
	if body.MaturityDate != nil {
		maturity, err := time.Parse(time.RFC3339, *body.MaturityDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "maturity_date must be RFC 3339")
			return
		}
		req.MaturityDate = &maturity
	}

	agreement, err := h.facilitySvc.AmendAgreement(c.Request.Context(), id, req)
	if err != nil {
		respondDomainError(c, err, "could not amend credit agreement")
		return
	}
	respondSuccess(c, http.StatusOK, agreement)
}
