package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendor-payouts/payout-service/internal/admin_api/service"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
	"github.com/vendor-payouts/payout-service/internal/domain/vendor"
)

// VendorHandler handles HTTP requests for vendor account administration
type VendorHandler struct {
	vendorService service.VendorService
	logger        *slog.Logger
}

// NewVendorHandler creates a new vendor handler
func NewVendorHandler(logger *slog.Logger, vendorService service.VendorService) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
		logger:        logger,
	}
}

// Create handles creation of a new vendor account
func (h *VendorHandler) Create(c *gin.Context) {
	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	feePercent, err := decimal.NewFromString(req.FeePercent)
	if err != nil {
		RespondBadRequest(c, "Invalid fee_percent: "+err.Error())
		return
	}

	account, err := h.vendorService.CreateVendor(c.Request.Context(), service.CreateVendorParams{
		ExternalAccountRef:  req.ExternalAccountRef,
		FeePercent:          feePercent,
		ScheduleInterval:    shared.ScheduleInterval(req.ScheduleInterval),
		MinimumPayoutAmount: req.MinimumPayoutAmount,
		HoldPeriodDays:      req.HoldPeriodDays,
	})
	if err != nil {
		if errors.Is(err, vendor.ErrInvalidFeePercent) || errors.Is(err, vendor.ErrInvalidInterval) ||
			errors.Is(err, vendor.ErrNegativeMinimum) || errors.Is(err, vendor.ErrEmptyAccountRef) ||
			errors.Is(err, vendor.ErrInvalidHoldPeriod) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create vendor account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapVendorToResponse(account))
}

// GetByID retrieves a vendor account by its ID, returning 404 if not found
func (h *VendorHandler) GetByID(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	account, err := h.vendorService.GetVendor(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			RespondNotFound(c, "Vendor account not found")
			return
		}
		h.logger.Error("Failed to get vendor account", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapVendorToResponse(account))
}

// Update applies a partial vendor account update
func (h *VendorHandler) Update(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	var req UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := service.UpdateVendorParams{
		PayoutsEnabled:     req.PayoutsEnabled,
		ExternalAccountRef: req.ExternalAccountRef,
		HoldPeriodDays:     req.HoldPeriodDays,
	}
	if req.Status != nil {
		status := vendor.AccountStatus(*req.Status)
		params.Status = &status
	}
	if req.FeePercent != nil {
		feePercent, err := decimal.NewFromString(*req.FeePercent)
		if err != nil {
			RespondBadRequest(c, "Invalid fee_percent: "+err.Error())
			return
		}
		params.FeePercent = &feePercent
	}

	account, err := h.vendorService.UpdateVendor(c.Request.Context(), id, params)
	if err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			RespondNotFound(c, "Vendor account not found")
			return
		}
		if errors.Is(err, vendor.ErrInvalidFeePercent) || errors.Is(err, vendor.ErrEmptyAccountRef) ||
			errors.Is(err, vendor.ErrInvalidHoldPeriod) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to update vendor account", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapVendorToResponse(account))
}

// PlaceHold blocks payouts for a vendor until the hold is lifted
func (h *VendorHandler) PlaceHold(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	var req PlaceHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	hold, err := h.vendorService.PlaceHold(c.Request.Context(), id, req.Reason)
	if err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			RespondNotFound(c, "Vendor account not found")
			return
		}
		h.logger.Error("Failed to place payout hold", "vendor_account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapHoldToResponse(hold))
}

// LiftHold releases an active hold
func (h *VendorHandler) LiftHold(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	holdID, err := uuid.Parse(c.Param("hold_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid hold ID")
		return
	}

	if err := h.vendorService.LiftHold(c.Request.Context(), id, holdID); err != nil {
		if errors.Is(err, vendor.ErrAccountNotFound{}) {
			RespondNotFound(c, "Vendor account not found")
			return
		}
		h.logger.Error("Failed to lift payout hold", "hold_id", holdID.String(), "error", err)
		RespondNotFound(c, "No active hold with that ID")
		return
	}

	c.Status(204)
}

// ListHolds returns the active holds for a vendor
func (h *VendorHandler) ListHolds(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	holds, err := h.vendorService.ListHolds(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list payout holds", "vendor_account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]HoldResponse, 0, len(holds))
	for _, hold := range holds {
		responses = append(responses, mapHoldToResponse(hold))
	}
	RespondOK(c, responses)
}

// parseVendorID parses the :id path parameter, responding 400 on failure
func parseVendorID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid vendor account ID")
		return uuid.Nil, false
	}
	return id, true
}

// mapVendorToResponse maps a vendor account entity to a response DTO
func mapVendorToResponse(account *vendor.Account) VendorResponse {
	return VendorResponse{
		ID:                  account.ID.String(),
		ExternalAccountRef:  account.ExternalAccountRef,
		Status:              string(account.Status),
		PayoutsEnabled:      account.PayoutsEnabled,
		FeePercent:          account.FeePercent.String(),
		ScheduleInterval:    string(account.ScheduleInterval),
		MinimumPayoutAmount: account.MinimumPayoutAmount,
		HoldPeriodDays:      account.HoldPeriodDays,
		CreatedAt:           account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           account.UpdatedAt.Format(time.RFC3339),
	}
}

// mapHoldToResponse maps a payout hold entity to a response DTO
func mapHoldToResponse(hold *vendor.Hold) HoldResponse {
	resp := HoldResponse{
		ID:              hold.ID.String(),
		VendorAccountID: hold.VendorAccountID.String(),
		Reason:          hold.Reason,
		Status:          string(hold.Status),
		CreatedAt:       hold.CreatedAt.Format(time.RFC3339),
	}
	if hold.LiftedAt != nil {
		resp.LiftedAt = hold.LiftedAt.Format(time.RFC3339)
	}
	return resp
}
