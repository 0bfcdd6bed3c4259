package bankapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/shopspring/decimal"
)

// ErrEmptyInput indicates a scam check was requested with no text.
var ErrEmptyInput = errors.New("scam check input cannot be empty")

// ErrScamCheckFailed indicates the scam check endpoint reported success=false.
var ErrScamCheckFailed = errors.New("scam check failed")

// SafetyCheckRequest is the body of POST /api/safety-check.
type SafetyCheckRequest struct {
	ReceiverAccountNumber *string `json:"receiver_account_number"`
	Amount                float64 `json:"amount"`
	SenderAccountID       int64   `json:"sender_account_id"`
}

// NewSafetyCheckRequest builds the ML check body for an intent. A blank
// receiver account number is sent as null.
func NewSafetyCheckRequest(intent model.TransferIntent) SafetyCheckRequest {
	req := SafetyCheckRequest{
		SenderAccountID: intent.SenderAccountID,
		Amount:          intent.Amount.InexactFloat64(),
	}
	if acct := strings.TrimSpace(intent.ReceiverAccountNumber); acct != "" {
		req.ReceiverAccountNumber = &acct
	}
	return req
}

// DecimalAmount returns the amount as a decimal.
func (r SafetyCheckRequest) DecimalAmount() decimal.Decimal {
	return decimal.NewFromFloat(r.Amount)
}

// ScamCheckRequest is the body of POST /api/scam-check.
type ScamCheckRequest struct {
	Input string `json:"input"`
}

// ScamCheckResponse is the body returned by POST /api/scam-check.
type ScamCheckResponse struct {
	Verdict string `json:"verdict,omitempty"`
	Error   string `json:"error,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// SafetyCheck runs the ML fraud heuristic for a transfer. It is called
// exactly once per request; failures are returned, never retried.
func (c *Client) SafetyCheck(ctx context.Context, req SafetyCheckRequest) (model.MLVerdict, error) {
	var verdict model.MLVerdict
	if err := c.do(ctx, http.MethodPost, "/api/safety-check", req, &verdict); err != nil {
		return model.MLVerdict{}, fmt.Errorf("safety check: %w", err)
	}
	return verdict, nil
}

// ScamCheck sends free text to the LLM scam analysis.
func (c *Client) ScamCheck(ctx context.Context, input string) (model.LLMVerdict, error) {
	if strings.TrimSpace(input) == "" {
		return model.LLMVerdict{}, ErrEmptyInput
	}

	var resp ScamCheckResponse
	if err := c.do(ctx, http.MethodPost, "/api/scam-check", ScamCheckRequest{Input: input}, &resp); err != nil {
		return model.LLMVerdict{}, fmt.Errorf("scam check: %w", err)
	}

	if resp.Success != nil && !*resp.Success {
		if resp.Error == "" {
			return model.LLMVerdict{}, ErrScamCheckFailed
		}
		return model.LLMVerdict{}, fmt.Errorf("%w: %s", ErrScamCheckFailed, resp.Error)
	}

	return model.LLMVerdict{Verdict: resp.Verdict}, nil
}
