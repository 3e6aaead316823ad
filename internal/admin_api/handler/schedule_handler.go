package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendor-payouts/payout-service/internal/admin_api/service"
	"github.com/vendor-payouts/payout-service/internal/domain/schedule"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
)

// ScheduleHandler handles HTTP requests for payout schedule administration
type ScheduleHandler struct {
	scheduleService service.ScheduleService
	logger          *slog.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(logger *slog.Logger, scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		logger:          logger,
	}
}

// Update changes a vendor's payout cadence and minimum amount. The pending
// job is recomputed from the new interval immediately.
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	job, err := h.scheduleService.UpdateSchedule(c.Request.Context(), id, shared.ScheduleInterval(req.Interval), req.MinimumPayoutAmount)
	if err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			RespondNotFound(c, "Vendor account not found")
			return
		}
		if errors.Is(err, vendor.ErrInvalidInterval) || errors.Is(err, vendor.ErrNegativeMinimum) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to update payout schedule", "vendor_account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	if job == nil {
		// Configuration saved, but the vendor is not payout-enabled yet so
		// no job is registered
		RespondOK(c, gin.H{"scheduled": false})
		return
	}
	RespondOK(c, mapJobToResponse(job))
}

// Get returns the vendor's current payout job state
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	job, err := h.scheduleService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			RespondNotFound(c, "Vendor account not found")
			return
		}
		h.logger.Error("Failed to get payout schedule", "vendor_account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	if job == nil {
		RespondNotFound(c, "Vendor has no scheduled payout job")
		return
	}
	RespondOK(c, mapJobToResponse(job))
}

// mapJobToResponse maps a schedule job to a response DTO
func mapJobToResponse(job *schedule.Job) ScheduleResponse {
	resp := ScheduleResponse{
		VendorAccountID:     job.VendorAccountID.String(),
		Interval:            string(job.Interval),
		MinimumPayoutAmount: job.MinimumPayoutAmount,
		NextExecution:       job.NextExecution.Format(time.RFC3339),
		Status:              string(job.Status),
		RetryCount:          job.RetryCount,
	}
	if job.LastExecuted != nil {
		resp.LastExecuted = job.LastExecuted.Format(time.RFC3339)
	}
	return resp
}
