package bankapi

import (
	"context"
	"sync"

	"github.com/Veraticus/vigil/internal/model"
)

// MockClient is a mock implementation of API for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	SafetyCheckFn             func(ctx context.Context, req SafetyCheckRequest) (model.MLVerdict, error)
	ScamCheckFn               func(ctx context.Context, input string) (model.LLMVerdict, error)
	GetAccountFn              func(ctx context.Context, id int64) (*Account, error)
	LookupAccountFn           func(ctx context.Context, accountNumber string) (*AccountLookup, error)
	ExecuteTransferFn         func(ctx context.Context, req TransferRequest) (*Transfer, error)
	ExecuteInternalTransferFn func(ctx context.Context, req InternalTransferRequest) (*InternalTransferResult, error)

	// Call tracking
	SafetyCheckCalls      []SafetyCheckRequest
	ScamCheckCalls        []string
	TransferCalls         []TransferRequest
	InternalTransferCalls []InternalTransferRequest
	GetAccountCalls       int
	LookupAccountCalls    int

	mu sync.Mutex
}

// NewMockClient creates a new mock banking API client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SafetyCheck implements SafetyChecker.
func (m *MockClient) SafetyCheck(ctx context.Context, req SafetyCheckRequest) (model.MLVerdict, error) {
	m.mu.Lock()
	m.SafetyCheckCalls = append(m.SafetyCheckCalls, req)
	fn := m.SafetyCheckFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	// Default behavior: everything is safe
	return model.MLVerdict{IsSafe: true, Message: "Transaction is safe (confidence: 2.00%)"}, nil
}

// ScamCheck implements ScamChecker.
func (m *MockClient) ScamCheck(ctx context.Context, input string) (model.LLMVerdict, error) {
	m.mu.Lock()
	m.ScamCheckCalls = append(m.ScamCheckCalls, input)
	fn := m.ScamCheckFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, input)
	}
	return model.LLMVerdict{Verdict: "This is not a scam"}, nil
}

// GetAccount implements AccountReader.
func (m *MockClient) GetAccount(ctx context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	m.GetAccountCalls++
	fn := m.GetAccountFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, id)
	}
	return &Account{ID: id, AccountNumber: "1234567890", IsActive: true}, nil
}

// LookupAccount implements AccountReader.
func (m *MockClient) LookupAccount(ctx context.Context, accountNumber string) (*AccountLookup, error) {
	m.mu.Lock()
	m.LookupAccountCalls++
	fn := m.LookupAccountFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, accountNumber)
	}
	return &AccountLookup{AccountNumber: accountNumber}, nil
}

// ExecuteTransfer implements TransferExecutor.
func (m *MockClient) ExecuteTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	m.mu.Lock()
	m.TransferCalls = append(m.TransferCalls, req)
	fn := m.ExecuteTransferFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Transfer{ID: 1, Status: "completed"}, nil
}

// ExecuteInternalTransfer implements TransferExecutor.
func (m *MockClient) ExecuteInternalTransfer(ctx context.Context, req InternalTransferRequest) (*InternalTransferResult, error) {
	m.mu.Lock()
	m.InternalTransferCalls = append(m.InternalTransferCalls, req)
	fn := m.ExecuteInternalTransferFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &InternalTransferResult{Success: true, TransferID: 1}, nil
}

// SafetyCheckCount returns how many ML checks were made.
func (m *MockClient) SafetyCheckCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SafetyCheckCalls)
}

// ScamCheckCount returns how many LLM checks were made.
func (m *MockClient) ScamCheckCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ScamCheckCalls)
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SafetyCheckCalls = nil
	m.ScamCheckCalls = nil
	m.TransferCalls = nil
	m.InternalTransferCalls = nil
	m.GetAccountCalls = 0
	m.LookupAccountCalls = 0
}

// Ensure MockClient implements API interface.
var _ API = (*MockClient)(nil)
