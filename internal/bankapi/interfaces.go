package bankapi

import (
	"context"

	"github.com/Veraticus/vigil/internal/model"
)

// SafetyChecker runs the ML fraud heuristic.
type SafetyChecker interface {
	SafetyCheck(ctx context.Context, req SafetyCheckRequest) (model.MLVerdict, error)
}

// ScamChecker runs the LLM scam analysis on free text.
type ScamChecker interface {
	ScamCheck(ctx context.Context, input string) (model.LLMVerdict, error)
}

// AccountReader reads account data used to prepare a transfer.
type AccountReader interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
	LookupAccount(ctx context.Context, accountNumber string) (*AccountLookup, error)
}

// TransferExecutor executes a confirmed transfer.
type TransferExecutor interface {
	ExecuteTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	ExecuteInternalTransfer(ctx context.Context, req InternalTransferRequest) (*InternalTransferResult, error)
}

// API is everything the client offers.
type API interface {
	SafetyChecker
	ScamChecker
	AccountReader
	TransferExecutor
}

var _ API = (*Client)(nil)
