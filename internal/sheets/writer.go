package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var _ service.ReportWriter = (*Writer)(nil)

// Writer exports audit records to a Google spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets audit writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Write replaces the Runs and Summary tabs with the given records.
func (w *Writer) Write(ctx context.Context, runs []model.Run, summary *service.RunSummary) error {
	if summary == nil {
		summary = &service.RunSummary{ByExit: map[model.Exit]int{}}
	}
	w.logger.Info("starting audit export", "runs", len(runs), "total", summary.Total)

	spreadsheetID, tabIDs, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	tabs := []struct {
		name   string
		values [][]any
	}{
		{name: RunsTab, values: runRows(runs)},
		{name: SummaryTab, values: summaryRows(summary)},
	}

	for _, tab := range tabs {
		err = common.WithRetry(ctx, func() error {
			if clearErr := w.clearTab(ctx, spreadsheetID, tab.name); clearErr != nil {
				return clearErr
			}
			return w.writeData(ctx, spreadsheetID, tab.name, tab.values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s tab: %w", tab.name, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, tabIDs)
		}, retryOpts)
		if err != nil {
			// Formatting failures leave the data in place.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("audit export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(runs))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := newOAuthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = oauthConfig.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// getOrCreateSpreadsheet returns the spreadsheet ID and the sheet ID of each
// audit tab, adding missing tabs to an existing spreadsheet.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: RunsTab, SheetId: 0}},
				{Properties: &sheets.SheetProperties{Title: SummaryTab, SheetId: 1}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)
		return created.SpreadsheetId, map[string]int64{RunsTab: 0, SummaryTab: 1}, nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	tabIDs := make(map[string]int64)
	for _, sheet := range existing.Sheets {
		if sheet.Properties != nil {
			tabIDs[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}

	var requests []*sheets.Request
	for _, name := range []string{RunsTab, SummaryTab} {
		if _, ok := tabIDs[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
			})
		}
	}
	if len(requests) == 0 {
		return w.config.SpreadsheetID, tabIDs, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add audit tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			tabIDs[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return w.config.SpreadsheetID, tabIDs, nil
}

func (w *Writer) clearTab(ctx context.Context, spreadsheetID, tab string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tab+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes values in batches to stay under the API's request limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", tab, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, tabIDs map[string]int64) error {
	requests := formattingRequests(tabIDs[RunsTab], tabIDs[SummaryTab])
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// formattingRequests bolds headers, freezes the Runs header row, formats the
// money columns in dong and highlights bypassed runs.
func formattingRequests(runsID, summaryID int64) []*sheets.Request {
	bold := &sheets.CellData{
		UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
	}
	dong := &sheets.CellData{
		UserEnteredFormat: &sheets.CellFormat{
			NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "#,##0 \"₫\""},
		},
	}

	return []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range:  &sheets.GridRange{SheetId: runsID, StartRowIndex: 0, EndRowIndex: 1},
				Cell:   bold,
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range:  &sheets.GridRange{SheetId: runsID, StartRowIndex: 1, StartColumnIndex: 4, EndColumnIndex: 6},
				Cell:   dong,
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AddConditionalFormatRule: &sheets.AddConditionalFormatRuleRequest{
				Index: 0,
				Rule: &sheets.ConditionalFormatRule{
					Ranges: []*sheets.GridRange{{SheetId: runsID, StartRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: int64(len(RunHeader))}},
					BooleanRule: &sheets.BooleanRule{
						Condition: &sheets.BooleanCondition{
							Type:   "CUSTOM_FORMULA",
							Values: []*sheets.ConditionValue{{UserEnteredValue: "=$J2=TRUE"}},
						},
						Format: &sheets.CellFormat{
							BackgroundColor: &sheets.Color{Red: 1, Green: 0.9, Blue: 0.8},
						},
					},
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        runsID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: summaryID, StartRowIndex: 0, EndRowIndex: 1},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16}},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    runsID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(RunHeader)),
				},
			},
		},
	}
}
