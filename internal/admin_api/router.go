package admin_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendor-payouts/payout-service/internal/admin_api/handler"
	"github.com/vendor-payouts/payout-service/internal/admin_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	vendorHandler *handler.VendorHandler,
	payoutHandler *handler.PayoutHandler,
	scheduleHandler *handler.ScheduleHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Vendor account administration
		vendors := v1.Group("/vendors")
		{
			vendors.POST("", vendorHandler.Create)
			vendors.GET("/:id", vendorHandler.GetByID)
			vendors.PATCH("/:id", vendorHandler.Update)

			// Payout operations and queries
			vendors.POST("/:id/payouts", payoutHandler.Trigger)
			vendors.GET("/:id/payouts", payoutHandler.List)
			vendors.GET("/:id/payouts/summary", payoutHandler.Summary)

			// Schedule configuration
			vendors.PUT("/:id/schedule", scheduleHandler.Update)
			vendors.GET("/:id/schedule", scheduleHandler.Get)

			// Payout holds
			vendors.POST("/:id/holds", vendorHandler.PlaceHold)
			vendors.GET("/:id/holds", vendorHandler.ListHolds)
			vendors.DELETE("/:id/holds/:hold_id", vendorHandler.LiftHold)
		}

		// Payout record lookup and the manual review queue
		payouts := v1.Group("/payouts")
		{
			payouts.GET("/:id", payoutHandler.GetByID)
			payouts.GET("/review", payoutHandler.ReviewQueue)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
