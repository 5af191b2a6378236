package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetops/finance-ledger/internal/api/handler"
	"github.com/fleetops/finance-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
	accountHandler *handler.AccountHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Charge operations
		charges := v1.Group("/charges")
		{
			charges.POST("", ledgerHandler.CreateCharge)
			charges.POST("/bulk", ledgerHandler.BulkCharge)
		}

		// Credit operations
		v1.POST("/credits", ledgerHandler.CreateCredit)

		// Entry operations
		entries := v1.Group("/entries")
		{
			entries.GET("/:id", ledgerHandler.GetByID)
			entries.DELETE("/:id", ledgerHandler.Delete)
			entries.POST("/:id/payments", ledgerHandler.RecordPayment)
			entries.POST("/:id/refunds", ledgerHandler.Refund)
		}

		// Customer-scoped reads
		customers := v1.Group("/customers")
		{
			customers.GET("/:id/entries", ledgerHandler.ListByCustomer)
			customers.GET("/:id/credit", ledgerHandler.GetCreditBalance)
		}

		// Cash account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:id", accountHandler.GetByID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
