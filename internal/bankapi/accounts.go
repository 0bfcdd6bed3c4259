package bankapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a bank account owned by the authenticated user.
type Account struct {
	CreatedAt     time.Time       `json:"created_at"`
	AccountNumber string          `json:"account_number"`
	AccountType   string          `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	IsActive      bool            `json:"is_active"`
}

// AccountLookup is the result of resolving an account number to its holder.
type AccountLookup struct {
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
	AccountType       string `json:"account_type"`
	Exists            bool   `json:"exists"`
}

// GetAccount fetches one of the user's accounts, including its balance.
func (c *Client) GetAccount(ctx context.Context, id int64) (*Account, error) {
	var account Account
	path := "/api/accounts/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &account); err != nil {
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return &account, nil
}

// LookupAccount resolves a VigiPay account number to the holder's name.
// An unknown number is not an error; Exists is false.
func (c *Client) LookupAccount(ctx context.Context, accountNumber string) (*AccountLookup, error) {
	var lookup AccountLookup
	path := "/api/bank-accounts/lookup/" + url.PathEscape(accountNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &lookup); err != nil {
		if IsNotFound(err) {
			return &AccountLookup{AccountNumber: accountNumber}, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return &lookup, nil
}
