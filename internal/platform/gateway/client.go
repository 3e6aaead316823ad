// Package gateway implements the HTTP client for the external payment
// transfer service. The payout sequence is two dependent calls: Transfer
// moves funds to the vendor's connected account, Payout then issues the
// outbound payout on their behalf. Both calls carry a client-generated
// idempotency key so a retry after a partial failure cannot move funds twice.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vendor-payouts/payout-service/internal/config"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

// Client defines the transfer gateway contract required by the payout processor
type Client interface {
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
	Payout(ctx context.Context, req *PayoutRequest) (*PayoutResult, error)
}

// TransferRequest moves funds to a vendor's connected account
type TransferRequest struct {
	DestinationAccount string            `json:"destination_account"`
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	IdempotencyKey     string            `json:"-"`
}

// TransferResult is the gateway's synchronous transfer response
type TransferResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PayoutRequest issues the outbound payout on behalf of a connected account
type PayoutRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	OnBehalfOf     string            `json:"on_behalf_of"`
	IdempotencyKey string            `json:"-"`
}

// PayoutResult is the gateway's synchronous payout response
type PayoutResult struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	ArrivalDate time.Time `json:"arrival_date"`
	CreatedAt   time.Time `json:"created_at"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPClient implements Client against the gateway's JSON API
type HTTPClient struct {
	baseURL         string
	apiKey          string
	platformAccount string
	maxElapsedTime  time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewHTTPClient(logger *slog.Logger, cfg *config.GatewayConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		platformAccount: cfg.PlatformAccount,
		maxElapsedTime:  cfg.MaxElapsedTime,
		// Per-call deadlines come from the caller's context; the zero
		// timeout here avoids a second, competing limit.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// PlatformAccount returns the configured on-behalf-of account
func (c *HTTPClient) PlatformAccount() string {
	return c.platformAccount
}

// Transfer performs the first leg of the payout sequence
func (c *HTTPClient) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	var result TransferResult
	if err := c.post(ctx, "/transfers", req, req.IdempotencyKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Payout performs the second leg of the payout sequence
func (c *HTTPClient) Payout(ctx context.Context, req *PayoutRequest) (*PayoutResult, error) {
	var result PayoutResult
	if err := c.post(ctx, "/payouts", req, req.IdempotencyKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends one JSON request with transient-error retry. Retries reuse the
// same idempotency key, so the gateway deduplicates repeated attempts.
func (c *HTTPClient) post(ctx context.Context, path string, body interface{}, idempotencyKey string, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return shared.WrapPayoutError(shared.KindInternal, "failed to marshal gateway request", err)
	}

	operation := func() error {
		return c.doOnce(ctx, path, payload, idempotencyKey, out)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsedTime

	err = backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Unwrap()
		}
		return c.translateTransportError(err)
	}
	return nil
}

func (c *HTTPClient) doOnce(ctx context.Context, path string, payload []byte, idempotencyKey string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(shared.WrapPayoutError(shared.KindInternal, "failed to build gateway request", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport failures are retryable unless the context is done
		if ctx.Err() != nil {
			return backoff.Permanent(c.translateTransportError(err))
		}
		c.logger.Warn("Gateway request failed, will retry", "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(shared.WrapPayoutError(shared.KindInternal, "failed to decode gateway response", err))
		}
		return nil
	}

	gwErr := c.translateStatus(resp.StatusCode, respBody)
	if shared.KindOf(gwErr).Retryable() {
		c.logger.Warn("Gateway returned transient error, will retry", "path", path, "status", resp.StatusCode)
		return gwErr
	}
	return backoff.Permanent(gwErr)
}

// translateStatus maps gateway HTTP responses to tagged error kinds
func (c *HTTPClient) translateStatus(statusCode int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Error.Message
	if message == "" {
		message = fmt.Sprintf("gateway returned status %d", statusCode)
	}

	var kind shared.ErrorKind
	switch {
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		kind = shared.KindGatewayTimeout
	case statusCode == http.StatusTooManyRequests:
		kind = shared.KindGatewayRateLimited
	case statusCode == http.StatusPaymentRequired && parsed.Error.Code == "insufficient_funds":
		kind = shared.KindInsufficientFunds
	case statusCode >= 500:
		kind = shared.KindGatewayUnavailable
	default:
		kind = shared.KindGatewayRejected
	}

	return shared.NewPayoutError(kind, message).WithDetail("status_code", statusCode).WithDetail("gateway_code", parsed.Error.Code)
}

func (c *HTTPClient) translateTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapPayoutError(shared.KindGatewayTimeout, "gateway call timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return shared.WrapPayoutError(shared.KindGatewayUnavailable, "gateway call canceled", err)
	}
	var pe *shared.PayoutError
	if errors.As(err, &pe) {
		return pe
	}
	return shared.WrapPayoutError(shared.KindGatewayUnavailable, "gateway unreachable", err)
}
