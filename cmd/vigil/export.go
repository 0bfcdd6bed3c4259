package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/vigil/internal/cli"
	"github.com/Veraticus/vigil/internal/config"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/Veraticus/vigil/internal/sheets"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the transfer check audit log to Google Sheets",
		Long: `Write the recorded transfer checks and an outcome summary to a Google
Sheets spreadsheet. Authenticate first with 'vigil auth sheets' or configure a
service account under sheets.service_account_path.`,
		RunE: runExport,
	}

	cmd.Flags().Duration("since", 0, "only export checks started within this window (e.g. 720h)")
	cmd.Flags().Int("limit", 0, "maximum number of checks to export (0 for all)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	window, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("google sheets is not configured: %w", err)
	}

	filter := service.RunFilter{Limit: limit}
	if window > 0 {
		since := time.Now().Add(-window)
		filter.Since = &since
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list checks: %w", err)
	}
	summary, err := store.SummarizeRuns(ctx, filter.Since)
	if err != nil {
		return fmt.Errorf("failed to summarize checks: %w", err)
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}
	var report service.ReportWriter = writer

	slog.Info("Exporting transfer checks", "runs", len(runs))
	if err := report.Write(ctx, runs, summary); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d transfer checks to %q", len(runs), sheetsConfig.SpreadsheetName)))
	return nil
}
