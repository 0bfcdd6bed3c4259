package plaid

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of BalanceFetcher for testing.
type MockClient struct {
	GetBalancesFn func(ctx context.Context) ([]Balance, error)

	Balances         []Balance
	GetBalancesCalls int
	mu               sync.Mutex
}

// NewMockClient creates a new mock Plaid client returning balances.
func NewMockClient(balances ...Balance) *MockClient {
	return &MockClient{Balances: balances}
}

// GetBalances implements BalanceFetcher.
func (m *MockClient) GetBalances(ctx context.Context) ([]Balance, error) {
	m.mu.Lock()
	m.GetBalancesCalls++
	fn := m.GetBalancesFn
	balances := m.Balances
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return balances, nil
}
