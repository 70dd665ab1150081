package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/splitledger/internal/api_gateway/handler"
	"github.com/splitledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	memberHandler *handler.MemberHandler,
	splitHandler *handler.SplitHandler,
	debtHandler *handler.DebtHandler,
	settlementHandler *handler.SettlementHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Member directory operations
		members := v1.Group("/members")
		{
			members.POST("", memberHandler.Create)
			members.GET("/:id", memberHandler.GetByID)
		}

		// Split record operations
		splits := v1.Group("/splits")
		{
			splits.POST("", splitHandler.Create)
			splits.POST("/preview", splitHandler.Preview)
			splits.GET("/:id", splitHandler.GetByID)
			splits.PUT("/:id", splitHandler.Update)
			splits.DELETE("/:id", splitHandler.Delete)
			splits.POST("/:id/confirm", splitHandler.Confirm)
			splits.POST("/:id/pay", splitHandler.MarkPaid)
			splits.POST("/:id/cancel", splitHandler.Cancel)
		}

		// Transaction to split lookup
		v1.GET("/transactions/:id/split", splitHandler.GetByTransactionID)

		// Ledger scoped reads
		ledgers := v1.Group("/ledgers")
		{
			ledgers.GET("/:id/splits", splitHandler.ListByLedger)
			ledgers.GET("/:id/debts", debtHandler.GetActiveDebts)
			ledgers.GET("/:id/balances", debtHandler.GetMemberBalances)
			ledgers.GET("/:id/settlements", settlementHandler.ListByLedger)
			ledgers.GET("/:id/settlements/preview", settlementHandler.Preview)
		}

		// Settlement lifecycle operations
		settlements := v1.Group("/settlements")
		{
			settlements.POST("", settlementHandler.Create)
			settlements.POST("/runs", settlementHandler.Run)
			settlements.GET("/:id", settlementHandler.GetByID)
			settlements.POST("/:id/start", settlementHandler.Start)
			settlements.POST("/:id/complete", settlementHandler.Complete)
			settlements.POST("/:id/cancel", settlementHandler.Cancel)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
