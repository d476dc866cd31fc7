package api

import (
	"net/http"

	"github.com/arcfin/loanledger/internal/api/handler"
	"github.com/arcfin/loanledger/internal/api/middleware"
	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	FacilitySvc *service.FacilityService
	PositionSvc *service.PositionService
	LoanSvc     *service.LoanService
	PaydownSvc  *service.PaydownService
	TradeSvc    *service.TradeService
	HistorySvc  *service.HistoryService
	Cfg         *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	agreementH := handler.NewAgreementHandler(deps.FacilitySvc)
	facilityH := handler.NewFacilityHandler(deps.FacilitySvc)
	positionH := handler.NewPositionHandler(deps.PositionSvc)
	loanH := handler.NewLoanHandler(deps.LoanSvc, deps.PaydownSvc)
	tradeH := handler.NewTradeHandler(deps.TradeSvc)
	historyH := handler.NewHistoryHandler(deps.HistorySvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	writeRL := middleware.RateLimitMiddleware(30, 60) // mutations, per IP
	readRL := middleware.RateLimitMiddleware(100, 200) // queries, per IP

	api := r.Group("/api")
	{
		// ── Credit agreements ─────────────────────────────────────────────────
		agreements := api.Group("/agreements")
		{
			agreements.POST("", writeRL, agreementH.Create)
			agreements.GET("/:id", readRL, agreementH.GetByID)
			agreements.PATCH("/:id", writeRL, agreementH.Amend)
			agreements.GET("/:id/facilities", readRL, facilityH.ListByAgreement)
		}

		// ── Facilities ────────────────────────────────────────────────────────
		facilities := api.Group("/facilities")
		{
			facilities.POST("", writeRL, facilityH.Create)
			facilities.GET("/:id", readRL, facilityH.GetByID)
			facilities.PATCH("/:id", writeRL, facilityH.Update)

			facilities.POST("/:id/positions", writeRL, positionH.Create)
			facilities.GET("/:id/positions", readRL, positionH.ListByFacility)

			facilities.POST("/:id/drawdowns", writeRL, loanH.CreateDrawdown)
			facilities.GET("/:id/loans", readRL, loanH.ListByFacility)

			facilities.GET("/:id/trades", readRL, tradeH.ListByFacility)

			facilities.GET("/:id/position-history", readRL, historyH.PositionHistory)
			facilities.GET("/:id/transactions", readRL, historyH.Transactions)
		}

		// ── Positions ─────────────────────────────────────────────────────────
		positions := api.Group("/positions")
		{
			positions.GET("/:id", readRL, positionH.GetByID)
			positions.PATCH("/:id", writeRL, positionH.Update)
		}

		// ── Loans ─────────────────────────────────────────────────────────────
		loans := api.Group("/loans")
		{
			loans.GET("/:id", readRL, loanH.GetByID)
			loans.PATCH("/:id", writeRL, loanH.UpdateStatus)
			loans.POST("/:id/paydowns", writeRL, loanH.Paydown)
		}

		// ── Trades ────────────────────────────────────────────────────────────
		trades := api.Group("/trades")
		{
			trades.POST("/validate", writeRL, tradeH.Validate)
			trades.POST("", writeRL, tradeH.Book)
			trades.GET("/:id", readRL, tradeH.GetByID)
			trades.POST("/:id/confirm", writeRL, tradeH.Confirm)
			trades.POST("/:id/settle", writeRL, tradeH.Settle)
			trades.POST("/:id/close", writeRL, tradeH.Close)
		}
	}

	return r
}
