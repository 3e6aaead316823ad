package handler

// CreateVendorRequest represents a request to create a new vendor account
type CreateVendorRequest struct {
	ExternalAccountRef  string `json:"external_account_ref" binding:"required"`
	FeePercent          string `json:"fee_percent" binding:"required"`
	ScheduleInterval    string `json:"schedule_interval" binding:"required,oneof=daily weekly biweekly monthly"`
	MinimumPayoutAmount int64  `json:"minimum_payout_amount" binding:"min=0"`
	HoldPeriodDays      int    `json:"hold_period_days" binding:"min=0"`
}

// UpdateVendorRequest represents a partial vendor account update
type UpdateVendorRequest struct {
	Status             *string `json:"status,omitempty" binding:"omitempty,oneof=pending active restricted disabled"`
	PayoutsEnabled     *bool   `json:"payouts_enabled,omitempty"`
	FeePercent         *string `json:"fee_percent,omitempty"`
	ExternalAccountRef *string `json:"external_account_ref,omitempty"`
	HoldPeriodDays     *int    `json:"hold_period_days,omitempty" binding:"omitempty,min=0"`
}

// VendorResponse represents a vendor account in API responses
type VendorResponse struct {
	ID                  string `json:"id"`
	ExternalAccountRef  string `json:"external_account_ref"`
	Status              string `json:"status"`
	PayoutsEnabled      bool   `json:"payouts_enabled"`
	FeePercent          string `json:"fee_percent"`
	ScheduleInterval    string `json:"schedule_interval"`
	MinimumPayoutAmount int64  `json:"minimum_payout_amount"`
	HoldPeriodDays      int    `json:"hold_period_days"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// TriggerPayoutRequest represents a manual payout trigger
type TriggerPayoutRequest struct {
	Amount int64 `json:"amount" binding:"min=0"` // 0 pays out the full eligible balance
	Force  bool  `json:"force"`                  // Bypass the minimum amount threshold
}

// PayoutResponse represents a payout record in API responses
type PayoutResponse struct {
	ID                  string `json:"id"`
	VendorAccountID     string `json:"vendor_account_id"`
	Amount              int64  `json:"amount"`
	FeeAmount           int64  `json:"fee_amount"`
	Currency            string `json:"currency"`
	Status              string `json:"status"`
	PeriodStart         string `json:"period_start"`
	PeriodEnd           string `json:"period_end"`
	ExternalTransferRef string `json:"external_transfer_ref,omitempty"`
	ExternalPayoutRef   string `json:"external_payout_ref,omitempty"`
	ArrivalDate         string `json:"arrival_date,omitempty"`
	BookingCount        int    `json:"booking_count"`
	CreatedAt           string `json:"created_at"`
}

// LineItemResponse represents a payout line item in API responses
type LineItemResponse struct {
	ID            string `json:"id"`
	LedgerEntryID string `json:"ledger_entry_id"`
	GrossAmount   int64  `json:"gross_amount"`
	FeeAmount     int64  `json:"fee_amount"`
	NetAmount     int64  `json:"net_amount"`
}

// PayoutDetailResponse represents a payout record with its line items
type PayoutDetailResponse struct {
	PayoutResponse
	LineItems []LineItemResponse `json:"line_items"`
}

// PayoutListResponse represents a list of payouts in API responses
type PayoutListResponse struct {
	Payouts []PayoutResponse `json:"payouts"`
}

// SummaryResponse represents aggregated payout totals for a vendor
type SummaryResponse struct {
	VendorAccountID string           `json:"vendor_account_id"`
	TotalPaid       int64            `json:"total_paid"`
	TotalFees       int64            `json:"total_fees"`
	PayoutCount     int64            `json:"payout_count"`
	StatusCounts    map[string]int64 `json:"status_counts"`
}

// UpdateScheduleRequest represents a schedule configuration change
type UpdateScheduleRequest struct {
	Interval            string `json:"interval" binding:"required,oneof=daily weekly biweekly monthly"`
	MinimumPayoutAmount int64  `json:"minimum_payout_amount" binding:"min=0"`
}

// ScheduleResponse represents a vendor's payout job state
type ScheduleResponse struct {
	VendorAccountID     string `json:"vendor_account_id"`
	Interval            string `json:"interval"`
	MinimumPayoutAmount int64  `json:"minimum_payout_amount"`
	NextExecution       string `json:"next_execution"`
	Status              string `json:"status"`
	RetryCount          int    `json:"retry_count"`
	LastExecuted        string `json:"last_executed,omitempty"`
}

// PlaceHoldRequest represents a request to block a vendor's payouts
type PlaceHoldRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// HoldResponse represents a payout hold in API responses
type HoldResponse struct {
	ID              string `json:"id"`
	VendorAccountID string `json:"vendor_account_id"`
	Reason          string `json:"reason"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	LiftedAt        string `json:"lifted_at,omitempty"`
}

// FailureResponse represents an archived payout failure in API responses
type FailureResponse struct {
	ID                   string                 `json:"id"`
	VendorAccountID      string                 `json:"vendor_account_id"`
	PayoutRecordID       string                 `json:"payout_record_id,omitempty"`
	ErrorKind            string                 `json:"error_kind"`
	ErrorMessage         string                 `json:"error_message"`
	ErrorDetails         map[string]interface{} `json:"error_details,omitempty"`
	RetryCount           int                    `json:"retry_count"`
	RequiresManualReview bool                   `json:"requires_manual_review"`
	CreatedAt            string                 `json:"created_at"`
}

// PayoutHistoryParams represents filters for payout history queries
type PayoutHistoryParams struct {
	Status  string `form:"status" binding:"omitempty,oneof=processing paid failed in_transit reconciliation_required"`
	From    string `form:"from"` // RFC 3339
	To      string `form:"to"`   // RFC 3339
	Page    int    `form:"page,default=1" binding:"min=1"`
	PerPage int    `form:"per_page,default=10" binding:"min=1,max=100"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
