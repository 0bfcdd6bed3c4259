package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/vigil/internal/cli"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/spf13/cobra"
)

func scamCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scam-check <text...>",
		Short: "Ask the scam checker about a conversation or story",
		Long: `Send free text to the bank's scam checker and print its verdict.

Use it to check a message or a story about why someone asked you for money,
without starting a transfer.`,
		Example: `  vigil scam-check "a man from the police says my account is frozen and I must move the money"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return common.NewUserError("Nothing to check. Describe the situation first.", workflow.ErrEmptyContext)
			}

			client, _, err := newBankClient(cmd.Context())
			if err != nil {
				return err
			}

			verdict, err := client.ScamCheck(cmd.Context(), text)
			if err != nil {
				return fmt.Errorf("scam check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if workflow.IsNotScam(verdict.Verdict) {
				fmt.Fprintln(out, cli.FormatSuccess(verdict.Verdict))
			} else {
				fmt.Fprintln(out, cli.RenderDangerBox("High risk of scam", cli.ErrorStyle.Render(verdict.Verdict)))
			}
			return nil
		},
	}
}
