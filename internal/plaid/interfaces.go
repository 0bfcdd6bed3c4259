package plaid

import "context"

// BalanceFetcher reads account balances from an aggregator.
type BalanceFetcher interface {
	GetBalances(ctx context.Context) ([]Balance, error)
}
