package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendor-payouts/payout-service/internal/admin_api/middleware"
	"github.com/vendor-payouts/payout-service/internal/admin_api/service"
	"github.com/vendor-payouts/payout-service/internal/domain/payout"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

// PayoutHandler handles HTTP requests for payout operations and queries
type PayoutHandler struct {
	payoutService service.PayoutAdminService
	logger        *slog.Logger
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(logger *slog.Logger, payoutService service.PayoutAdminService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
		logger:        logger,
	}
}

// Trigger runs a payout for the vendor right now. The request goes through
// the same pipeline as scheduled payouts, so a concurrent run yields 409 and
// an ineligible vendor yields 422.
func (h *PayoutHandler) Trigger(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	var req TriggerPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	record, err := h.payoutService.TriggerPayout(c.Request.Context(), id, req.Amount, req.Force, correlationID)
	if err != nil {
		h.respondPayoutError(c, id, err)
		return
	}

	RespondCreated(c, mapPayoutToResponse(record))
}

// List returns payout history for a vendor with status and date filters
func (h *PayoutHandler) List(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	var params PayoutHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := payout.HistoryFilter{
		Status: payout.RecordStatus(params.Status),
		Limit:  params.PerPage,
		Offset: (params.Page - 1) * params.PerPage,
	}
	if params.From != "" {
		from, err := time.Parse(time.RFC3339, params.From)
		if err != nil {
			RespondBadRequest(c, "Invalid 'from' timestamp, expected RFC 3339")
			return
		}
		filter.From = &from
	}
	if params.To != "" {
		to, err := time.Parse(time.RFC3339, params.To)
		if err != nil {
			RespondBadRequest(c, "Invalid 'to' timestamp, expected RFC 3339")
			return
		}
		filter.To = &to
	}

	records, total, err := h.payoutService.ListPayouts(c.Request.Context(), id, filter)
	if err != nil {
		h.logger.Error("Failed to list payouts", "vendor_account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]PayoutResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, mapPayoutToResponse(record))
	}
	RespondWithPaginatedData(c, 200, PayoutListResponse{Payouts: responses}, params.Page, params.PerPage, int(total))
}

// Summary returns aggregate payout totals and a status breakdown for a vendor
func (h *PayoutHandler) Summary(c *gin.Context) {
	id, ok := parseVendorID(c)
	if !ok {
		return
	}

	summary, err := h.payoutService.Summary(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to build payout summary", "vendor_account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, SummaryResponse{
		VendorAccountID: summary.VendorAccountID.String(),
		TotalPaid:       summary.TotalPaid,
		TotalFees:       summary.TotalFees,
		PayoutCount:     summary.PayoutCount,
		StatusCounts:    summary.StatusCounts,
	})
}

// GetByID returns one payout record with its line items
func (h *PayoutHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid payout record ID")
		return
	}

	record, items, err := h.payoutService.GetPayout(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, payout.ErrRecordNotFound{}) {
			RespondNotFound(c, "Payout record not found")
			return
		}
		h.logger.Error("Failed to get payout record", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	detail := PayoutDetailResponse{
		PayoutResponse: mapPayoutToResponse(record),
		LineItems:      make([]LineItemResponse, 0, len(items)),
	}
	for _, item := range items {
		detail.LineItems = append(detail.LineItems, LineItemResponse{
			ID:            item.ID.String(),
			LedgerEntryID: item.LedgerEntryID.String(),
			GrossAmount:   item.GrossAmount,
			FeeAmount:     item.FeeAmount,
			NetAmount:     item.NetAmount,
		})
	}
	RespondOK(c, detail)
}

// ReviewQueue returns the archived failures awaiting manual review
func (h *PayoutHandler) ReviewQueue(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	failures, err := h.payoutService.ListFailuresRequiringReview(c.Request.Context(), params.PerPage, (params.Page-1)*params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list failures requiring review", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]FailureResponse, 0, len(failures))
	for _, failure := range failures {
		responses = append(responses, mapFailureToResponse(failure))
	}
	RespondOK(c, responses)
}

// respondPayoutError maps the tagged payout error kinds onto HTTP statuses
func (h *PayoutHandler) respondPayoutError(c *gin.Context, vendorAccountID uuid.UUID, err error) {
	kind := shared.KindOf(err)
	switch kind {
	case shared.KindValidation:
		RespondBadRequest(c, err.Error())
	case shared.KindNotFound:
		RespondNotFound(c, "Vendor account not found")
	case shared.KindConcurrency:
		RespondConflict(c, "A payout is already in flight for this vendor")
	case shared.KindEligibility:
		RespondUnprocessable(c, string(kind), err.Error())
	case shared.KindReconciliationRequired:
		h.logger.Error("Manual payout requires reconciliation", "vendor_account_id", vendorAccountID.String(), "error", err)
		RespondBadGateway(c, string(kind), "Transfer succeeded but payout leg failed; manual reconciliation required")
	case shared.KindGatewayTimeout, shared.KindGatewayRateLimited, shared.KindGatewayUnavailable,
		shared.KindInsufficientFunds, shared.KindGatewayRejected:
		h.logger.Error("Manual payout failed at gateway", "vendor_account_id", vendorAccountID.String(), "error_kind", kind, "error", err)
		RespondBadGateway(c, string(kind), err.Error())
	default:
		h.logger.Error("Manual payout failed", "vendor_account_id", vendorAccountID.String(), "error", err)
		RespondInternalError(c)
	}
}

// mapPayoutToResponse maps a payout record entity to a response DTO
func mapPayoutToResponse(record *payout.Record) PayoutResponse {
	resp := PayoutResponse{
		ID:                  record.ID.String(),
		VendorAccountID:     record.VendorAccountID.String(),
		Amount:              record.Amount,
		FeeAmount:           record.FeeAmount,
		Currency:            record.Currency,
		Status:              string(record.Status),
		PeriodStart:         record.PeriodStart.Format(time.RFC3339),
		PeriodEnd:           record.PeriodEnd.Format(time.RFC3339),
		ExternalTransferRef: record.ExternalTransferRef,
		ExternalPayoutRef:   record.ExternalPayoutRef,
		BookingCount:        record.BookingCount,
		CreatedAt:           record.CreatedAt.Format(time.RFC3339),
	}
	if record.ArrivalDate != nil {
		resp.ArrivalDate = record.ArrivalDate.Format(time.RFC3339)
	}
	return resp
}

// mapFailureToResponse maps an archived failure to a response DTO
func mapFailureToResponse(failure *payout.FailureRecord) FailureResponse {
	resp := FailureResponse{
		ID:                   failure.ID.String(),
		VendorAccountID:      failure.VendorAccountID.String(),
		ErrorKind:            failure.ErrorKind,
		ErrorMessage:         failure.ErrorMessage,
		ErrorDetails:         failure.ErrorDetails,
		RetryCount:           failure.RetryCount,
		RequiresManualReview: failure.RequiresManualReview,
		CreatedAt:            failure.CreatedAt.Format(time.RFC3339),
	}
	if failure.PayoutRecordID != nil {
		resp.PayoutRecordID = failure.PayoutRecordID.String()
	}
	return resp
}
