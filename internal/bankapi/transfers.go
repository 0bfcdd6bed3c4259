package bankapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/shopspring/decimal"
)

// FeePayer selects who bears the transfer fee.
type FeePayer string

// Fee payers.
const (
	FeePayerSender   FeePayer = "sender"
	FeePayerReceiver FeePayer = "receiver"
)

// TransferRequest is the body of POST /api/transfers.
type TransferRequest struct {
	Description           *string  `json:"description,omitempty"`
	ReceiverAccountNumber string   `json:"receiver_account_number"`
	ReceiverBank          string   `json:"receiver_bank"`
	ReceiverName          string   `json:"receiver_name"`
	FeePayer              FeePayer `json:"fee_payer"`
	Amount                float64  `json:"amount"`
	SenderAccountID       int64    `json:"sender_account_id"`
}

// InternalTransferRequest is the body of POST /api/transfer/internal.
type InternalTransferRequest struct {
	ReceiverAccountNumber string   `json:"receiver_account_number"`
	Description           string   `json:"description"`
	FeePayer              FeePayer `json:"fee_payer"`
	Amount                float64  `json:"amount"`
	SenderAccountID       int64    `json:"sender_account_id"`
}

// Transfer is a transfer record created by POST /api/transfers.
type Transfer struct {
	CreatedAt             time.Time       `json:"created_at"`
	ReceiverName          *string         `json:"receiver_name"`
	Description           *string         `json:"description"`
	SenderAccountNumber   string          `json:"sender_account_number"`
	ReceiverAccountNumber string          `json:"receiver_account_number"`
	ReceiverBank          string          `json:"receiver_bank"`
	FeePayer              FeePayer        `json:"fee_payer"`
	Status                string          `json:"status"`
	Amount                decimal.Decimal `json:"amount"`
	Fee                   decimal.Decimal `json:"fee"`
	ID                    int64           `json:"id"`
	SenderAccountID       int64           `json:"sender_account_id"`
}

// InternalTransferResult is returned by POST /api/transfer/internal.
type InternalTransferResult struct {
	Message            string          `json:"message"`
	ReceiverName       string          `json:"receiver_name"`
	AmountSent         decimal.Decimal `json:"amount_sent"`
	AmountReceived     decimal.Decimal `json:"amount_received"`
	Fee                decimal.Decimal `json:"fee"`
	SenderNewBalance   decimal.Decimal `json:"sender_new_balance"`
	ReceiverNewBalance decimal.Decimal `json:"receiver_new_balance"`
	TransferID         int64           `json:"transfer_id"`
	Success            bool            `json:"success"`
}

// NewTransferRequest builds the external transfer body for an intent.
func NewTransferRequest(intent model.TransferIntent) TransferRequest {
	req := TransferRequest{
		SenderAccountID:       intent.SenderAccountID,
		ReceiverAccountNumber: intent.ReceiverAccountNumber,
		ReceiverBank:          intent.ReceiverBank,
		ReceiverName:          intent.ReceiverName,
		Amount:                intent.Amount.InexactFloat64(),
		FeePayer:              FeePayerSender,
	}
	if intent.Description != "" {
		desc := intent.Description
		req.Description = &desc
	}
	return req
}

// NewInternalTransferRequest builds the internal transfer body for an intent.
func NewInternalTransferRequest(intent model.TransferIntent) InternalTransferRequest {
	desc := intent.Description
	if desc == "" {
		desc = "Internal transfer"
	}
	return InternalTransferRequest{
		SenderAccountID:       intent.SenderAccountID,
		ReceiverAccountNumber: intent.ReceiverAccountNumber,
		Amount:                intent.Amount.InexactFloat64(),
		Description:           desc,
		FeePayer:              FeePayerSender,
	}
}

// ExecuteTransfer creates a transfer to another bank.
func (c *Client) ExecuteTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	var transfer Transfer
	if err := c.do(ctx, http.MethodPost, "/api/transfers", req, &transfer); err != nil {
		return nil, fmt.Errorf("execute transfer: %w", err)
	}
	return &transfer, nil
}

// ExecuteInternalTransfer moves money between two VigiPay accounts.
func (c *Client) ExecuteInternalTransfer(ctx context.Context, req InternalTransferRequest) (*InternalTransferResult, error) {
	var result InternalTransferResult
	if err := c.do(ctx, http.MethodPost, "/api/transfer/internal", req, &result); err != nil {
		return nil, fmt.Errorf("execute internal transfer: %w", err)
	}
	if !result.Success {
		return &result, fmt.Errorf("execute internal transfer: %s", result.Message)
	}
	return &result, nil
}
