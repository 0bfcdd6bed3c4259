package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/cli"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/form"
	"github.com/Veraticus/vigil/internal/handoff"
	"github.com/Veraticus/vigil/internal/metrics"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/storage"
	"github.com/Veraticus/vigil/internal/tui"
	"github.com/Veraticus/vigil/internal/tui/themes"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Check a transfer for fraud and send it",
		Long: `Run the safety check on a transfer and, when it clears or you choose to
continue, review and send it.

Transfers of more than 90% of your balance ask for confirmation first. The
bank's fraud model then scores the transfer. If it is flagged you can explain
how you know the recipient, skip the check, or cancel.`,
		Example: `  vigil transfer --from 1 --to 0987654321 --bank vigipay --name "Tran Thi Binh" --amount 500000
  vigil transfer --from 1 --to 9704001234 --bank VCB --name "Le Van C" --amount 2000000 --balance 2100000 --tui`,
		RunE: runTransfer,
	}

	cmd.Flags().Int64("from", 0, "sender account ID")
	cmd.Flags().String("to", "", "receiver account number")
	cmd.Flags().String("bank", "vigipay", "receiver bank code")
	cmd.Flags().String("name", "", "receiver name (looked up for vigipay accounts)")
	cmd.Flags().String("amount", "", "amount in VND")
	cmd.Flags().String("description", "", "transfer note")
	cmd.Flags().String("balance", "", "use this balance instead of reading it from the balance source")
	cmd.Flags().Bool("tui", false, "run the safety check in the full-screen interface")

	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runTransfer(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	input, manualBalance, err := transferInput(cmd)
	if err != nil {
		return err
	}
	useTUI, _ := cmd.Flags().GetBool("tui")

	client, tokens, err := newBankClient(ctx)
	if err != nil {
		return err
	}

	source, err := newBalanceSource(viper.GetString("balance.source"), manualBalance, client)
	if err != nil {
		return err
	}

	intent, err := form.NewBuilder(source, client).Build(ctx, input)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Cannot start the transfer: %v", err), err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	recorder := storage.NewRecorder(store)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	if addr := viper.GetString("metrics.addr"); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, registry); err != nil {
				slog.Error("Metrics listener stopped", "error", err)
			}
		}()
	}

	nav := handoff.New()
	opts := []workflow.Option{
		workflow.WithConfig(workflowConfig()),
		workflow.WithObservers(recorder, collector),
		workflow.WithCredentials(tokens),
	}
	route := model.NewRouteState(intent)
	prompter := cli.NewPrompter(cmd.InOrStdin(), out)

	var exit model.Exit
	if useTUI {
		p := tui.New(ctx, tui.WithTheme(themes.ByName(viper.GetString("tui.theme"))))
		c := workflow.New(client, client, nav, append(opts, workflow.WithNotifier(p))...)
		exit, err = tui.Run(ctx, p, c, &route)
	} else {
		fmt.Fprintln(out, cli.FormatTitle("Checking your transfer"))
		checkCtx := cli.NewInterruptHandler(out).HandleInterrupts(ctx)
		c := workflow.New(client, client, nav, append(opts, workflow.WithNotifier(cli.NewNotifier(out)))...)
		exit, err = workflow.Run(checkCtx, c, prompter, &route)
	}
	if recErr := recorder.Err(); recErr != nil {
		slog.Warn("Transfer check was not written to the audit log", "error", recErr)
	}
	if err != nil {
		return err
	}

	prompter.ShowExit(exit)
	if !exit.ProceedsToConfirmation() {
		if exit.Reason == model.ReasonCancelled {
			prompter.ShowEdit(intent)
		}
		return nil
	}

	dest, err := nav.Wait(ctx)
	if err != nil {
		return err
	}
	return confirmTransfer(ctx, prompter, handoff.NewConfirmer(client), dest, out)
}

// transferInput reads the form flags.
func transferInput(cmd *cobra.Command) (form.Input, decimal.Decimal, error) {
	from, _ := cmd.Flags().GetInt64("from")
	to, _ := cmd.Flags().GetString("to")
	bank, _ := cmd.Flags().GetString("bank")
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	amountText, _ := cmd.Flags().GetString("amount")
	balanceText, _ := cmd.Flags().GetString("balance")

	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return form.Input{}, decimal.Zero, common.NewUserError(fmt.Sprintf("Invalid amount %q", amountText), err)
	}

	manual := decimal.Zero
	if balanceText != "" {
		manual, err = decimal.NewFromString(balanceText)
		if err != nil {
			return form.Input{}, decimal.Zero, common.NewUserError(fmt.Sprintf("Invalid balance %q", balanceText), err)
		}
	}

	return form.Input{
		SenderAccountID:       from,
		ReceiverAccountNumber: to,
		ReceiverBank:          bank,
		ReceiverName:          name,
		Description:           description,
		Amount:                amount,
	}, manual, nil
}

func confirmTransfer(ctx context.Context, prompter *cli.Prompter, confirmer *handoff.Confirmer, dest handoff.Destination, out io.Writer) error {
	summary, err := confirmer.Summary(dest.State)
	if err != nil {
		return err
	}

	choice, err := prompter.ConfirmTransfer(ctx, summary)
	if err != nil {
		return err
	}

	switch choice {
	case cli.ConfirmEdit:
		prompter.ShowEdit(summary.Intent)
		return nil
	case cli.ConfirmCancel:
		fmt.Fprintln(out, cli.FormatInfo("Transfer not sent."))
		return nil
	}

	receipt, err := confirmer.Execute(ctx, summary)
	if err != nil {
		var apiErr *bankapi.APIError
		if errors.As(err, &apiErr) {
			return common.NewUserError("Transfer failed: "+apiErr.Detail, err)
		}
		return fmt.Errorf("transfer failed: %w", err)
	}
	prompter.ShowReceipt(receipt)
	return nil
}
