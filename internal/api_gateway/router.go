package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/debit-ledger/internal/api_gateway/handler"
	"github.com/debit-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	v1 := r.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/trustlines", accountHandler.TrustLines)
			accounts.GET("/:id/debits", accountHandler.Debits)
			accounts.GET("/:id/transactions", transactionHandler.GetByAccountID)
		}

		v1.GET("/debits/count", accountHandler.CountDebits)

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Submit)
			transactions.GET("/:id", transactionHandler.GetByID)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
