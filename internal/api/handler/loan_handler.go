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

// LoanHandler serves drawdown, loan status and paydown endpoints.
type LoanHandler struct {
	loanSvc    *service.LoanService
	paydownSvc *service.PaydownService
}

// NewLoanHandler creates a LoanHandler.
func NewLoanHandler(loanSvc *service.LoanService, paydownSvc *service.PaydownService) *LoanHandler {
	return &LoanHandler{loanSvc: loanSvc, paydownSvc: paydownSvc}
}

// CreateDrawdown godoc
// POST /api/facilities/:id/drawdowns
// Body: {"amount":"300000.00","currency":"USD","draw_date":"2026-09-01T00:00:00Z"}
func (h *LoanHandler) CreateDrawdown(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	var body struct {
		Amount   string `json:"amount"   binding:"required"`
		Currency string `json:"currency" binding:"required"`
		DrawDate string `json:"draw_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}
	drawDate := time.Now().UTC()
	if body.DrawDate != "" {
		if drawDate, err = time.Parse(time.RFC3339, body.DrawDate); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "draw_date must be RFC 3339")
			return
		}
	}

	loan, err := h.loanSvc.CreateDrawdown(c.Request.Context(), domain.CreateDrawdownRequest{
		FacilityID: facilityID,
		Amount:     amount,
		Currency:   body.Currency,
		DrawDate:   drawDate,
		ActorID:    actorID(c),
	})
	if err != nil {
		respondDomainError(c, err, "could not create drawdown")
		return
	}
	respondSuccess(c, http.StatusCreated, loan)
}

// ListByFacility godoc
// GET /api/facilities/:id/loans
func (h *LoanHandler) ListByFacility(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	loans, err := h.loanSvc.ListLoans(c.Request.Context(), facilityID)
	if err != nil {
		respondDomainError(c, err, "could not list loans")
		return
	}
	respondSuccess(c, http.StatusOK, loans)
}

// GetByID godoc
// GET /api/loans/:id
func (h *LoanHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid loan id")
		return
	}

	loan, err := h.loanSvc.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch loan")
		return
	}
	respondSuccess(c, http.StatusOK, loan)
}

// UpdateStatus godoc
// PATCH /api/loans/:id
// Body: {"status":"DEFAULTED"}
func (h *LoanHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid loan id")
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	loan, err := h.loanSvc.UpdateLoan(c.Request.Context(), id, domain.UpdateLoanRequest{
		Status:  domain.LoanStatus(body.Status),
		ActorID: actorID(c),
	})
	if err != nil {
		respondDomainError(c, err, "could not update loan")
		return
	}
	respondSuccess(c, http.StatusOK, loan)
}

// Paydown godoc
// POST /api/loans/:id/paydowns
// Body: {"facility_id":"uuid","amount":"50000.00","payment_date":"..."}
func (h *LoanHandler) Paydown(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid loan id")
		return
	}

	var body struct {
		FacilityID  string `json:"facility_id" binding:"required"`
		Amount      string `json:"amount"      binding:"required"`
		PaymentDate string `json:"payment_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return
	}

	facilityID, err := uuid.Parse(body.FacilityID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_FACILITY_ID", "invalid facility_id format")
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}
	paymentDate := time.Now().UTC()
	if body.PaymentDate != "" {
		if paymentDate, err = time.Parse(time.RFC3339, body.PaymentDate); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "payment_date must be RFC 3339")
			return
		}
	}

	result, err := h.paydownSvc.ProcessPaydown(c.Request.Context(), domain.PaydownRequest{
		LoanID:      loanID,
		FacilityID:  facilityID,
		Amount:      amount,
		PaymentDate: paymentDate,
		ActorID:     actorID(c),
	})
	if err != nil {
		respondDomainError(c, err, "could not process paydown")
		return
	}
	respondSuccess(c, http.StatusOK, result)
}
