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

// TradeHandler serves the secondary trade lifecycle endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// parseTradeRequest decodes and validates the shared trade request body.
func parseTradeRequest(c *gin.Context) (domain.TradeRequest, bool) {
	var body struct {
		FacilityID     string `json:"facility_id"     binding:"required"`
		SellerLenderID string `json:"seller_lender_id" binding:"required"`
		BuyerLenderID  string `json:"buyer_lender_id"  binding:"required"`
		TradeDate      string `json:"trade_date"`
		SettlementDate string `json:"settlement_date" binding:"required"`
		ParAmount      string `json:"par_amount"      binding:"required"`
		Price          string `json:"price"           binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return domain.TradeRequest{}, false
	}

	facilityID, err := uuid.Parse(body.FacilityID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_FACILITY_ID", "invalid facility_id format")
		return domain.TradeRequest{}, false
	}
	sellerID, err := uuid.Parse(body.SellerLenderID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SELLER_ID", "invalid seller_lender_id format")
		return domain.TradeRequest{}, false
	}
	buyerID, err := uuid.Parse(body.BuyerLenderID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_BUYER_ID", "invalid buyer_lender_id format")
		return domain.TradeRequest{}, false
	}
	parAmount, err := decimal.NewFromString(body.ParAmount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "par_amount must be a decimal string")
		return domain.TradeRequest{}, false
	}
	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "price must be a decimal string")
		return domain.TradeRequest{}, false
	}
	settlementDate, err := time.Parse(time.RFC3339, body.SettlementDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "settlement_date must be RFC 3339")
		return domain.TradeRequest{}, false
	}
	tradeDate := time.Now().UTC()
	if body.TradeDate != "" {
		if tradeDate, err = time.Parse(time.RFC3339, body.TradeDate); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "trade_date must be RFC 3339")
			return domain.TradeRequest{}, false
		}
	}

	return domain.TradeRequest{
		FacilityID:     facilityID,
		SellerLenderID: sellerID,
		BuyerLenderID:  buyerID,
		TradeDate:      tradeDate,
		SettlementDate: settlementDate,
		ParAmount:      parAmount,
		Price:          price,
		ActorID:        actorID(c),
	}, true
}

// Validate godoc
// POST /api/trades/validate
// Runs the read-only validation phase; the verdict comes back 200 either way.
func (h *TradeHandler) Validate(c *gin.Context) {
	req, ok := parseTradeRequest(c)
	if !ok {
		return
	}

	verdict, err := h.tradeSvc.ValidateTrade(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err, "could not validate trade")
		return
	}
	respondSuccess(c, http.StatusOK, verdict)
}

// Book godoc
// POST /api/trades
func (h *TradeHandler) Book(c *gin.Context) {
	req, ok := parseTradeRequest(c)
	if !ok {
		return
	}

	trade, err := h.tradeSvc.BookTrade(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err, "could not book trade")
		return
	}
	respondSuccess(c, http.StatusCreated, trade)
}

// GetByID godoc
// GET /api/trades/:id
func (h *TradeHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid trade id")
		return
	}

	trade, err := h.tradeSvc.GetTrade(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch trade")
		return
	}
	respondSuccess(c, http.StatusOK, trade)
}

// ListByFacility godoc
// GET /api/facilities/:id/trades
func (h *TradeHandler) ListByFacility(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid facility id")
		return
	}

	trades, err := h.tradeSvc.ListTrades(c.Request.Context(), facilityID)
	if err != nil {
		respondDomainError(c, err, "could not list trades")
		return
	}
	respondSuccess(c, http.StatusOK, trades)
}

// Confirm godoc
// POST /api/trades/:id/confirm
func (h *TradeHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid trade id")
		return
	}

	trade, err := h.tradeSvc.ConfirmTrade(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not confirm trade")
		return
	}
	respondSuccess(c, http.StatusOK, trade)
}

// Settle godoc
// POST /api/trades/:id/settle
func (h *TradeHandler) Settle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid trade id")
		return
	}

	trade, err := h.tradeSvc.SettleTrade(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondDomainError(c, err, "could not settle trade")
		return
	}
	respondSuccess(c, http.StatusOK, trade)
}

// Close godoc
// POST /api/trades/:id/close
func (h *TradeHandler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid trade id")
		return
	}

	trade, err := h.tradeSvc.CloseTrade(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not close trade")
		return
	}
	respondSuccess(c, http.StatusOK, trade)
}
