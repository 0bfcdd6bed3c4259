package sheets

import (
	"fmt"
	"sort"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
)

// Tab names in the exported spreadsheet.
const (
	RunsTab    = "Runs"
	SummaryTab = "Summary"
)

const timeLayout = "2006-01-02 15:04:05"

// RunHeader is the column layout of the Runs tab.
var RunHeader = []any{
	"Started",
	"Run ID",
	"Receiver",
	"Bank",
	"Amount",
	"Balance",
	"Final Status",
	"Exit",
	"Reason",
	"Bypassed",
	"ML Message",
	"LLM Verdict",
	"Duration (s)",
}

// runRows renders audit records newest first.
func runRows(runs []model.Run) [][]any {
	sorted := make([]model.Run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})

	rows := make([][]any, 0, len(sorted)+1)
	rows = append(rows, RunHeader)
	for i := range sorted {
		r := &sorted[i]
		balance := ""
		if r.Intent.HasBalance() {
			balance = r.Intent.SenderBalance.String()
		}
		rows = append(rows, []any{
			r.StartedAt.UTC().Format(timeLayout),
			r.ID.String(),
			r.Intent.ReceiverName + " (" + r.Intent.ReceiverAccountNumber + ")",
			r.Intent.ReceiverBank,
			r.Intent.Amount.String(),
			balance,
			string(r.FinalStatus),
			string(r.Exit.Kind),
			string(r.Exit.Reason),
			r.Bypassed(),
			r.MLMessage,
			r.LLMVerdict,
			fmt.Sprintf("%.2f", r.Duration().Seconds()),
		})
	}
	return rows
}

// summaryRows renders the exit breakdown, largest bucket first.
func summaryRows(summary *service.RunSummary) [][]any {
	rows := [][]any{
		{"Vigil Audit Summary"},
		{},
		{"Total runs", summary.Total},
		{"Bypassed", summary.Bypassed},
		{},
		{"Exit", "Reason", "Count"},
	}

	exits := make([]model.Exit, 0, len(summary.ByExit))
	for exit := range summary.ByExit {
		exits = append(exits, exit)
	}
	sort.Slice(exits, func(i, j int) bool {
		ci, cj := summary.ByExit[exits[i]], summary.ByExit[exits[j]]
		if ci != cj {
			return ci > cj
		}
		return exits[i].String() < exits[j].String()
	})

	for _, exit := range exits {
		rows = append(rows, []any{string(exit.Kind), string(exit.Reason), summary.ByExit[exit]})
	}
	return rows
}
