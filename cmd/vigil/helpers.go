package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/vigil/internal/balance"
	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/config"
	"github.com/Veraticus/vigil/internal/plaid"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/Veraticus/vigil/internal/simplefin"
	"github.com/Veraticus/vigil/internal/storage"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

// initStorage opens the audit database and brings its schema up to date.
func initStorage(ctx context.Context) (service.RunStore, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newTokenSource builds the session credential from auth.* settings.
func newTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tokens, err := bankapi.NewTokenSource(ctx,
		viper.GetString("api.base_url"),
		viper.GetString("auth.access_token"),
		viper.GetString("auth.refresh_token"))
	if err != nil {
		return nil, common.NewUserError("Not logged in. Run 'vigil auth login' first.", err)
	}
	return tokens, nil
}

// newBankClient creates the API client and the token source it uses.
func newBankClient(ctx context.Context) (*bankapi.Client, oauth2.TokenSource, error) {
	tokens, err := newTokenSource(ctx)
	if err != nil {
		return nil, nil, err
	}

	client, err := bankapi.NewClient(bankapi.Config{
		BaseURL: viper.GetString("api.base_url"),
		Timeout: viper.GetDuration("api.timeout"),
	}, tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return client, tokens, nil
}

// newBalanceSource selects where the balance snapshot comes from. A manual
// balance always wins.
func newBalanceSource(name string, manual decimal.Decimal, accounts bankapi.AccountReader) (balance.Source, error) {
	if !manual.IsZero() {
		return balance.NewManualSource(manual), nil
	}

	switch name {
	case "", balance.SourceAPI:
		return balance.NewAPISource(accounts), nil

	case balance.SourcePlaid:
		client, err := plaid.NewClient(plaid.Config{
			ClientID:    viper.GetString("plaid.client_id"),
			Secret:      viper.GetString("plaid.secret"),
			Environment: viper.GetString("plaid.environment"),
			AccessToken: viper.GetString("plaid.access_token"),
		})
		if err != nil {
			return nil, err
		}
		return balance.NewPlaidSource(client, viper.GetString("plaid.account_id")), nil

	case balance.SourceOFX:
		path := config.ExpandPath(viper.GetString("ofx.path"))
		if path == "" {
			return nil, fmt.Errorf("%w: ofx.path is required for the ofx balance source", common.ErrMissingConfig)
		}
		return balance.NewOFXSource(path, viper.GetString("ofx.account_id")), nil

	case balance.SourceSimpleFIN:
		accessURL := viper.GetString("simplefin.access_url")
		if accessURL == "" {
			return nil, common.NewUserError("SimpleFIN is not linked. Run 'vigil auth simplefin' first.", common.ErrMissingConfig)
		}
		client, err := simplefin.NewClient(accessURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
		return balance.NewSimpleFINSource(client, viper.GetString("simplefin.account_id")), nil

	case balance.SourceManual:
		return nil, fmt.Errorf("%w: the manual balance source needs --balance", common.ErrMissingConfig)

	default:
		return nil, fmt.Errorf("%w: unknown balance source %q", common.ErrInvalidConfig, name)
	}
}

func workflowConfig() workflow.Config {
	cfg := workflow.DefaultConfig()
	if v := viper.GetFloat64("guard.threshold_percent"); v > 0 {
		cfg.ThresholdPercent = v
	}
	if v := viper.GetDuration("workflow.safe_delay"); v > 0 {
		cfg.SafeDelay = v
	}
	return cfg
}
