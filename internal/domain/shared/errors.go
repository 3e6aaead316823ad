package shared

import (
	"errors"
	"fmt"
)

// ErrorKind tags a payout failure with an explicit category. Classification
// decisions (retry vs. escalate) are made on the kind, never on message text.
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION"
	KindConcurrency            ErrorKind = "CONCURRENCY"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindEligibility            ErrorKind = "ELIGIBILITY"
	KindGatewayTimeout         ErrorKind = "GATEWAY_TIMEOUT"
	KindGatewayRateLimited     ErrorKind = "GATEWAY_RATE_LIMITED"
	KindGatewayUnavailable     ErrorKind = "GATEWAY_UNAVAILABLE"
	KindInsufficientFunds      ErrorKind = "INSUFFICIENT_FUNDS"
	KindGatewayRejected        ErrorKind = "GATEWAY_REJECTED"
	KindReconciliationRequired ErrorKind = "RECONCILIATION_REQUIRED"
	KindInternal               ErrorKind = "INTERNAL"
)

// Retryable reports whether failures of this kind may be retried automatically.
// Validation, concurrency, not-found, eligibility and permanent gateway
// rejections are terminal for the attempt; reconciliation-required is neither
// retried nor resolved automatically.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindGatewayTimeout, KindGatewayRateLimited, KindGatewayUnavailable, KindInsufficientFunds:
		return true
	default:
		return false
	}
}

// PayoutError is the tagged error type carried across the payout pipeline.
type PayoutError struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *PayoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PayoutError) Unwrap() error {
	return e.Err
}

// Is matches any PayoutError with the same kind, so callers can use
// errors.Is(err, &PayoutError{Kind: KindConcurrency}).
func (e *PayoutError) Is(target error) bool {
	t, ok := target.(*PayoutError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewPayoutError creates a tagged payout error.
func NewPayoutError(kind ErrorKind, message string) *PayoutError {
	return &PayoutError{Kind: kind, Message: message}
}

// WrapPayoutError tags an underlying error with a kind and message.
func WrapPayoutError(kind ErrorKind, message string, err error) *PayoutError {
	return &PayoutError{Kind: kind, Message: message, Err: err}
}

// WithDetail attaches structured context to the error and returns it.
func (e *PayoutError) WithDetail(key string, value interface{}) *PayoutError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// KindOf extracts the error kind, defaulting to KindInternal for untagged errors.
func KindOf(err error) ErrorKind {
	var pe *PayoutError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsRetryable classifies an error as retryable based on its kind tag.
// Untagged errors are treated as fatal and escalated for review.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
