// Command vigil-stub serves an in-memory demo bank implementing the API the
// vigil CLI talks to.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Veraticus/vigil/internal/certs"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/config"
	"github.com/Veraticus/vigil/internal/llm"
	"github.com/Veraticus/vigil/internal/stub"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vigil-stub",
		Short: "Run a demo bank API for vigil",
		Long: `vigil-stub serves the banking endpoints vigil uses: login and refresh,
accounts, account lookup, the fraud model, the scam checker, and transfers.

Demo users share the password ` + stub.DemoPassword + `. Scam checks use a
language model when llm.provider is set, and a keyword list otherwise.

With --tls the API is served over HTTPS with a self-signed localhost
certificate kept in --cert-dir. Point SSL_CERT_FILE at its localhost.crt so
vigil trusts it.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		RunE:              runStub,
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	cmd.Flags().String("cert-dir", "", "certificate directory (default: $HOME/.config/vigil/certs)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "console", "log format (console, json)")
	_ = viper.BindPFlag("stub.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("stub.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("stub.cert_dir", cmd.Flags().Lookup("cert-dir"))
	_ = viper.BindPFlag("logging.level", cmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.Flags().Lookup("log-format"))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, common.UserMessage(err, err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	viper.SetEnvPrefix("VIGIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("llm.rate_limit", 30)
	viper.SetDefault("llm.max_retries", 3)
	viper.SetDefault("llm.retry_delay", "1s")
	viper.SetDefault("llm.cache_ttl", "10m")

	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	common.SetupLogger(os.Stderr, level, viper.GetString("logging.format"))
	return nil
}

func runStub(cmd *cobra.Command, _ []string) error {
	logger := common.Component("stub")

	bank, err := stub.DemoBank()
	if err != nil {
		return fmt.Errorf("failed to seed demo bank: %w", err)
	}

	tokens, err := stub.NewTokenIssuer([]byte(viper.GetString("stub.secret")),
		viper.GetDuration("stub.access_ttl"), viper.GetDuration("stub.refresh_ttl"))
	if err != nil {
		return err
	}

	judge, err := newJudge(logger)
	if err != nil {
		return err
	}

	server := stub.NewServer(bank, tokens, judge, logger)
	addr := viper.GetString("stub.addr")
	if !viper.GetBool("stub.tls") {
		return server.Serve(cmd.Context(), addr)
	}

	dir := config.ExpandPath(viper.GetString("stub.cert_dir"))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "vigil", "certs")
	}
	store := certs.NewStore(dir)
	cert, err := store.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}
	logger.Info("serving with self-signed certificate", "cert_file", store.CertFile())
	return server.ServeTLS(cmd.Context(), addr, cert)
}

// newJudge picks the scam checker backend from llm.* settings.
func newJudge(logger *slog.Logger) (stub.Judge, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
	if cfg.Provider == "" {
		logger.Info("no llm.provider set, using keyword scam checker")
		return stub.NewKeywordJudge(), nil
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	logger.Info("scam checks use a language model", "provider", cfg.Provider, "model", cfg.Model)
	return llm.NewScamJudge(client, cfg, logger), nil
}
