package backoffice

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/arcfin/loanledger/internal/backoffice/handler"
	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/repository"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AdminSvc    *service.AdminService
	HistorySvc  *service.HistoryService
	HistoryRepo *repository.HistoryRepository
	Cfg         *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine on its own port.
// Operators authenticate with a static API key; the upstream identity
// gateway handles who holds the key.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	adminH := handler.NewLedgerAdminHandler(deps.AdminSvc)
	auditH := handler.NewAuditHandler(deps.HistorySvc, deps.HistoryRepo)

	admin := r.Group("/admin")
	admin.Use(apiKeyMiddleware(deps.Cfg.Server.BackofficeAPIKey))
	{
		// Facilities
		f := admin.Group("/facilities")
		{
			f.POST("/:id/reset", adminH.ResetFacility)
			f.GET("/:id/position-history", auditH.PositionHistory)
			f.GET("/:id/transactions", auditH.Transactions)
		}

		// Positions
		p := admin.Group("/positions")
		{
			p.POST("/:id/adjust", adminH.AdjustPosition)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── API key middleware ────────────────────────────────────────────────────────

// apiKeyMiddleware requires the X-Admin-Key header to match the configured
// key. An empty configured key disables the check (dev mode); config
// validation rejects that in production.
func apiKeyMiddleware(key string) gin.HandlerFunc {
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}
