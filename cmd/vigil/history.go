package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/cli"
	"github.com/Veraticus/vigil/internal/display"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfer checks",
		Long: `List the transfer safety checks recorded in the audit log, newest first,
followed by a count of how each check ended.`,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 20, "maximum number of checks to show")
	cmd.Flags().Duration("since", 0, "only show checks started within this window (e.g. 168h)")
	cmd.Flags().Bool("bypassed", false, "only show checks that continued past a warning")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	window, _ := cmd.Flags().GetDuration("since")
	bypassed, _ := cmd.Flags().GetBool("bypassed")

	filter := service.RunFilter{Limit: limit, BypassedOnly: bypassed}
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

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("Transfer check history"))
	if len(runs) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No transfer checks recorded yet."))
		return nil
	}

	renderRuns(out, runs)
	renderSummary(out, summary)
	return nil
}

var historyColumns = []struct {
	title string
	width int
}{
	{"Started", 17},
	{"Recipient", 34},
	{"Amount", 16},
	{"Outcome", 28},
	{"Took", 8},
}

func renderRuns(w io.Writer, runs []model.Run) {
	header := make([]string, len(historyColumns))
	for i, col := range historyColumns {
		header[i] = cli.TableHeaderStyle.Width(col.width).Render(col.title)
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	for _, run := range runs {
		cells := []string{
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			display.Truncate(display.Recipient(run.Intent.ReceiverName, run.Intent.ReceiverAccountNumber, run.Intent.ReceiverBank), 32),
			display.VND(run.Intent.Amount),
			run.Exit.String(),
			run.Duration().Round(time.Second).String(),
		}
		row := make([]string, len(cells))
		for i, cell := range cells {
			style := cli.TableCellStyle.Width(historyColumns[i].width)
			if i == 3 && run.Bypassed() {
				style = style.Foreground(cli.WarningStyle.GetForeground())
			}
			row[i] = style.Render(cell)
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
}

func renderSummary(w io.Writer, summary *service.RunSummary) {
	exits := make([]model.Exit, 0, len(summary.ByExit))
	for exit := range summary.ByExit {
		exits = append(exits, exit)
	}
	slices.SortFunc(exits, func(a, b model.Exit) int {
		return strings.Compare(a.String(), b.String())
	})

	var b strings.Builder
	for _, exit := range exits {
		fmt.Fprintf(&b, "%-30s %d\n", exit.String(), summary.ByExit[exit])
	}
	fmt.Fprintf(&b, "\nTotal: %d  Continued past a warning: %d", summary.Total, summary.Bypassed)
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderBox("Outcomes", b.String()))
}
