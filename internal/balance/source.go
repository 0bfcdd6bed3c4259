// Package balance provides the sender balance snapshot a transfer is
// checked against. The snapshot is taken once, when the transfer form is
// filled in.
package balance

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/ofx"
	"github.com/Veraticus/vigil/internal/plaid"
	"github.com/Veraticus/vigil/internal/simplefin"
	"github.com/shopspring/decimal"
)

// Source names.
const (
	SourceAPI       = "api"
	SourcePlaid     = "plaid"
	SourceOFX       = "ofx"
	SourceSimpleFIN = "simplefin"
	SourceManual    = "manual"
)

// Snapshot is a balance reading.
type Snapshot struct {
	AsOf          time.Time
	Source        string
	AccountNumber string
	Amount        decimal.Decimal
}

// Source reads the balance of a sender account.
type Source interface {
	Snapshot(ctx context.Context, senderAccountID int64) (Snapshot, error)
}

// APISource reads the balance from the bank's account endpoint.
type APISource struct {
	accounts bankapi.AccountReader
	now      func() time.Time
}

// NewAPISource creates a source backed by GET /api/accounts/{id}.
func NewAPISource(accounts bankapi.AccountReader) *APISource {
	return &APISource{accounts: accounts, now: time.Now}
}

// Snapshot implements Source.
func (s *APISource) Snapshot(ctx context.Context, senderAccountID int64) (Snapshot, error) {
	account, err := s.accounts.GetAccount(ctx, senderAccountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", common.ErrBalanceUnavailable, err)
	}
	return Snapshot{
		Amount:        account.Balance,
		AccountNumber: account.AccountNumber,
		AsOf:          s.now(),
		Source:        SourceAPI,
	}, nil
}

// PlaidSource reads the balance of a linked account through Plaid.
type PlaidSource struct {
	fetcher   plaid.BalanceFetcher
	accountID string
}

// NewPlaidSource creates a source for the Plaid account accountID, which
// may be an account id or mask.
func NewPlaidSource(fetcher plaid.BalanceFetcher, accountID string) *PlaidSource {
	return &PlaidSource{fetcher: fetcher, accountID: accountID}
}

// Snapshot implements Source.
func (s *PlaidSource) Snapshot(ctx context.Context, _ int64) (Snapshot, error) {
	balances, err := s.fetcher.GetBalances(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	b, err := plaid.FindBalance(balances, s.accountID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Amount: b.Spendable(),
		AsOf:   b.AsOf,
		Source: SourcePlaid,
	}, nil
}

// OFXSource reads the balance from a downloaded statement file.
type OFXSource struct {
	parser    *ofx.Parser
	path      string
	accountID string
}

// NewOFXSource creates a source reading path.
func NewOFXSource(path, accountID string) *OFXSource {
	return &OFXSource{parser: ofx.NewParser(), path: path, accountID: accountID}
}

// Snapshot implements Source.
func (s *OFXSource) Snapshot(ctx context.Context, _ int64) (Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", common.ErrBalanceUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	stmt, err := s.parser.Balance(ctx, f, s.accountID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Amount:        stmt.Spendable(),
		AccountNumber: stmt.AccountID,
		AsOf:          stmt.AsOf,
		Source:        SourceOFX,
	}, nil
}

// SimpleFINFetcher lists account balances from the SimpleFIN bridge.
type SimpleFINFetcher interface {
	GetBalances(ctx context.Context) ([]simplefin.Balance, error)
}

// SimpleFINSource reads the balance of an account linked through SimpleFIN.
type SimpleFINSource struct {
	fetcher   SimpleFINFetcher
	accountID string
}

// NewSimpleFINSource creates a source for the SimpleFIN account accountID.
func NewSimpleFINSource(fetcher SimpleFINFetcher, accountID string) *SimpleFINSource {
	return &SimpleFINSource{fetcher: fetcher, accountID: accountID}
}

// Snapshot implements Source.
func (s *SimpleFINSource) Snapshot(ctx context.Context, _ int64) (Snapshot, error) {
	balances, err := s.fetcher.GetBalances(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", common.ErrBalanceUnavailable, err)
	}
	b, err := simplefin.FindBalance(balances, s.accountID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Amount: b.Spendable(),
		AsOf:   b.AsOf,
		Source: SourceSimpleFIN,
	}, nil
}

// ManualSource returns a balance the user typed in.
type ManualSource struct {
	now    func() time.Time
	amount decimal.Decimal
}

// NewManualSource creates a fixed-balance source.
func NewManualSource(amount decimal.Decimal) *ManualSource {
	return &ManualSource{amount: amount, now: time.Now}
}

// Snapshot implements Source.
func (s *ManualSource) Snapshot(context.Context, int64) (Snapshot, error) {
	return Snapshot{Amount: s.amount, AsOf: s.now(), Source: SourceManual}, nil
}
