package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/cli"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/sheets"
	"github.com/Veraticus/vigil/internal/simplefin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the bank and external services",
		Long:  `Log in to the banking API, link a SimpleFIN balance feed, or authorize Google Sheets for audit exports.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authSimpleFINCmd())
	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the banking API",
		Long: `Exchange your username and password for a session and save the tokens
to the config file. The password is read from --password, VIGIL_PASSWORD, or
the first line of standard input.`,
		Example: `  echo "$PASSWORD" | vigil auth login --username an`,
		RunE:    runAuthLogin,
	}

	cmd.Flags().String("username", "", "bank username")
	cmd.Flags().String("password", "", "bank password (prefer stdin)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("VIGIL_PASSWORD")
	}
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return common.NewUserError("No password given. Pipe it on stdin or set VIGIL_PASSWORD.", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	token, err := bankapi.Login(cmd.Context(), viper.GetString("api.base_url"), username, password)
	if err != nil {
		if bankapi.IsUnauthorized(err) {
			return common.NewUserError("Wrong username or password.", err)
		}
		return err
	}

	viper.Set("auth.access_token", token.AccessToken)
	viper.Set("auth.refresh_token", token.RefreshToken)
	if err := saveConfig(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged in as "+username))
	return nil
}

func authSimpleFINCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simplefin",
		Short: "Link a SimpleFIN bridge for balance snapshots",
		Long: `Claim a SimpleFIN setup token and save the access URL to the config file.
Set balance.source to simplefin to read the sender balance from it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			accessURL, err := simplefin.Claim(cmd.Context(), token)
			if err != nil {
				return err
			}

			viper.Set("simplefin.access_url", accessURL)
			if err := saveConfig(); err != nil {
				return fmt.Errorf("failed to save access URL: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("SimpleFIN linked. Set balance.source: simplefin to use it."))
			return nil
		},
	}

	cmd.Flags().String("token", "", "SimpleFIN setup token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

Visit the printed URL, grant access, and the refresh token is saved to the
config file for 'vigil export'.`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback", sheets.DefaultCallbackAddr, "address for the OAuth2 redirect listener")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")
	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		clientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		clientSecret = flagSecret
	}
	if clientID == "" || clientSecret == "" {
		return common.NewUserError(
			"OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret or pass --client-id and --client-secret.",
			common.ErrMissingConfig)
	}

	configDir, err := configHome()
	if err != nil {
		return err
	}
	callback, _ := cmd.Flags().GetString("callback")

	token, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    filepath.Join(configDir, "sheets-token.json"),
		CallbackAddr: callback,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if token.RefreshToken == "" {
		return errors.New("google did not return a refresh token; revoke access and try again")
	}

	viper.Set("sheets.refresh_token", token.RefreshToken)
	if err := saveConfig(); err != nil {
		slog.Warn("Failed to update config file with refresh token", "error", err)
		fmt.Fprintf(cmd.OutOrStdout(), "Add this to your config.yaml:\nsheets:\n  refresh_token: %q\n", token.RefreshToken)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets is ready. Run 'vigil export' to write the audit log."))
	return nil
}

// configHome is the vigil directory under XDG_CONFIG_HOME or ~/.config.
func configHome() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vigil"), nil
}

// saveConfig writes the current settings back to the config file in use.
func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		dir, err := configHome()
		if err != nil {
			return err
		}
		configFile = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o750); err != nil {
		return err
	}
	return viper.WriteConfigAs(configFile)
}
