// Package settlement talks to the on-chain settlement service that moves funds for the
// disburse and repay legs of a loan.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request describes one transfer. IdempotencyKey lets the service deduplicate a leg that
// was submitted twice.
type Request struct {
	LoanID         string          `json:"loan_id"`
	WalletAddress  string          `json:"wallet_address,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Receipt is the outcome of a completed leg. TxHash is empty when the leg was not backed by
// an on-chain transaction.
type Receipt struct {
	TxHash string `json:"tx_hash"`
}

type errorBody struct {
	Error string `json:"error"`
}

var ErrRejected = errors.New("settlement rejected")

// Client is a resty-backed settlement client. It never retries: retry policy belongs to the
// settlement service and to the caller.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c, logger: logger}
}

func (c *Client) Disburse(ctx context.Context, req Request) (Receipt, error) {
	return c.submit(ctx, "/disbursements", req)
}

func (c *Client) Repay(ctx context.Context, req Request) (Receipt, error) {
	return c.submit(ctx, "/repayments", req)
}

func (c *Client) submit(ctx context.Context, path string, req Request) (Receipt, error) {
	var out Receipt
	var failure errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		Post(path)
	if err != nil {
		c.logger.Error("settlement call failed", zap.String("path", path), zap.String("loan_id", req.LoanID), zap.Error(err))
		return Receipt{}, fmt.Errorf("settlement %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Warn("settlement rejected",
			zap.String("path", path),
			zap.String("loan_id", req.LoanID),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("reason", failure.Error),
		)
		return Receipt{}, fmt.Errorf("%w: %s status %d: %s", ErrRejected, path, resp.StatusCode(), failure.Error)
	}
	c.logger.Info("settlement completed", zap.String("path", path), zap.String("loan_id", req.LoanID), zap.String("tx_hash", out.TxHash))
	return out, nil
}

// Offline completes every leg immediately without an on-chain transaction. It is used when
// no settlement service is configured.
type Offline struct{}

func (Offline) Disburse(context.Context, Request) (Receipt, error) { return Receipt{}, nil }

func (Offline) Repay(context.Context, Request) (Receipt, error) { return Receipt{}, nil }
