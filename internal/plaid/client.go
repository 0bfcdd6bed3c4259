// Package plaid reads account balances from the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	default:
		return fmt.Errorf("%w: plaid environment must be sandbox or production", common.ErrInvalidConfig)
	}
}

// Balance is one account's balance as reported by Plaid.
type Balance struct {
	AsOf      time.Time
	Available *decimal.Decimal
	AccountID string
	Name      string
	Mask      string
	Currency  string
	Current   decimal.Decimal
}

// Spendable is the available balance when the institution reports one,
// otherwise the current balance.
func (b Balance) Spendable() decimal.Decimal {
	if b.Available != nil {
		return *b.Available
	}
	return b.Current
}

// Client implements BalanceFetcher.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	now         func() time.Time
	accessToken string
}

var _ BalanceFetcher = (*Client)(nil)

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		now:         time.Now,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetBalances fetches real-time balances for every account on the item.
func (c *Client) GetBalances(ctx context.Context) ([]Balance, error) {
	c.logger.Debug("Fetching balances from Plaid")

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsBalanceGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*request).Execute()
		if err != nil {
			if plaidError := extractPlaidError(err); plaidError != nil {
				if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
					c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
					return &common.RetryableError{Err: err, Retryable: true}
				}
				return common.Permanent(fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage))
			}
			return fmt.Errorf("failed to fetch balances: %w", err)
		}

		accounts = resp.GetAccounts()
		return nil
	}, c.retryOpts)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrBalanceUnavailable, retryErr)
	}

	fetchedAt := c.now()
	balances := make([]Balance, 0, len(accounts))
	for _, account := range accounts {
		balances = append(balances, toBalance(account, fetchedAt))
	}

	c.logger.Info("Fetched balances", "count", len(balances))
	return balances, nil
}

// toBalance converts a Plaid account into a Balance.
func toBalance(account plaid.AccountBase, fetchedAt time.Time) Balance {
	bal := account.GetBalances()

	b := Balance{
		AccountID: account.GetAccountId(),
		Name:      account.GetName(),
		Mask:      account.GetMask(),
		Currency:  bal.GetIsoCurrencyCode(),
		AsOf:      fetchedAt,
	}
	if current, ok := bal.GetCurrentOk(); ok && current != nil {
		b.Current = decimal.NewFromFloat(*current)
	}
	if available, ok := bal.GetAvailableOk(); ok && available != nil {
		v := decimal.NewFromFloat(*available)
		b.Available = &v
	}
	if updated, ok := bal.GetLastUpdatedDatetimeOk(); ok && updated != nil && !updated.IsZero() {
		b.AsOf = *updated
	}
	return b
}

// FindBalance picks the balance for accountID, or the only account when
// accountID is empty.
func FindBalance(balances []Balance, accountID string) (Balance, error) {
	if accountID == "" {
		if len(balances) == 1 {
			return balances[0], nil
		}
		return Balance{}, fmt.Errorf("%w: %d plaid accounts, set plaid.account_id", common.ErrUnknownAccount, len(balances))
	}
	for _, b := range balances {
		if b.AccountID == accountID || (b.Mask != "" && b.Mask == accountID) {
			return b, nil
		}
	}
	return Balance{}, fmt.Errorf("%w: plaid account %s", common.ErrUnknownAccount, accountID)
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
