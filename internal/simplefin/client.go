// Package simplefin reads account balances through the SimpleFIN bridge.
package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/shopspring/decimal"
)

// Client fetches balances from a SimpleFIN access URL. The access URL
// carries its own basic auth credentials.
type Client struct {
	httpClient *http.Client
	accessURL  string
}

// Balance is one account's balance as reported by the bridge.
type Balance struct {
	AsOf      time.Time
	AccountID string
	Name      string
	Currency  string
	Current   decimal.Decimal
	Available decimal.Decimal
}

// Spendable prefers the available balance over the ledger balance.
func (b Balance) Spendable() decimal.Decimal {
	if !b.Available.IsZero() {
		return b.Available
	}
	return b.Current
}

type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type account struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"available-balance"`
	BalanceDate      int64  `json:"balance-date"`
}

// NewClient creates a client for a claimed access URL.
func NewClient(accessURL string) (*Client, error) {
	if !isHTTPURL(accessURL) {
		return nil, fmt.Errorf("invalid SimpleFIN access URL")
	}
	return &Client{
		accessURL:  strings.TrimRight(accessURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Claim exchanges a setup token for an access URL. Setup tokens are
// base64-encoded claim URLs and can be claimed once.
func Claim(ctx context.Context, setupToken string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(strings.TrimSpace(setupToken))
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(strings.TrimSpace(setupToken))
		if err != nil {
			return "", fmt.Errorf("failed to decode SimpleFIN token: %w", err)
		}
	}

	claimURL := string(decoded)
	if !isHTTPURL(claimURL) {
		return "", fmt.Errorf("decoded token is not a valid URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}

	resp, err := (&http.Client{Timeout: 30 * time.Second}).Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim access URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read access URL: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to claim SimpleFIN access: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	accessURL := strings.TrimSpace(string(body))
	if !isHTTPURL(accessURL) {
		return "", fmt.Errorf("invalid access URL received")
	}
	return accessURL, nil
}

// GetBalances fetches the balance of every account, without transactions.
func (c *Client) GetBalances(ctx context.Context) ([]Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.accessURL+"/accounts?balances-only=1", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("SimpleFIN API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var set accountSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for _, msg := range set.Errors {
		slog.Warn("SimpleFIN reported a problem", "message", msg)
	}

	balances := make([]Balance, 0, len(set.Accounts))
	for _, a := range set.Accounts {
		b, err := toBalance(a)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}

func toBalance(a account) (Balance, error) {
	current, err := decimal.NewFromString(a.Balance)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to parse balance %q of account %s: %w", a.Balance, a.ID, err)
	}
	b := Balance{
		AccountID: a.ID,
		Name:      a.Name,
		Currency:  a.Currency,
		Current:   current,
		AsOf:      time.Unix(a.BalanceDate, 0),
	}
	if a.AvailableBalance != "" {
		if b.Available, err = decimal.NewFromString(a.AvailableBalance); err != nil {
			return Balance{}, fmt.Errorf("failed to parse available balance of account %s: %w", a.ID, err)
		}
	}
	return b, nil
}

// FindBalance picks the balance for accountID. An empty ID selects the only
// account, and fails when there are several.
func FindBalance(balances []Balance, accountID string) (Balance, error) {
	if accountID == "" && len(balances) == 1 {
		return balances[0], nil
	}
	for _, b := range balances {
		if b.AccountID == accountID {
			return b, nil
		}
	}
	return Balance{}, fmt.Errorf("%w: simplefin account %q", common.ErrUnknownAccount, accountID)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
