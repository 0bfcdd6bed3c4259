package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/display"
	"github.com/Veraticus/vigil/internal/handoff"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/schollz/progressbar/v3"
)

// ErrInputTerminated is returned when stdin closes before a choice is made.
var ErrInputTerminated = errors.New("input terminated")

var _ workflow.Prompter = (*Prompter)(nil)

// Prompter asks for workflow decisions on a line-oriented terminal.
type Prompter struct {
	reader *LineReader
	writer io.Writer
	now    func() time.Time
	tick   time.Duration
}

// NewPrompter creates a prompter reading answers from reader.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{
		reader: NewLineReader(reader),
		writer: writer,
		now:    time.Now,
		tick:   100 * time.Millisecond,
	}
}

// ConfirmHighAmount implements workflow.Prompter.
func (p *Prompter) ConfirmHighAmount(ctx context.Context, snap workflow.Snapshot) (bool, error) {
	p.box(RenderWarningBox("Unusual amount", p.intentLines(snap.Intent)+"\n\n"+WarningStyle.Render(snap.HighAmountMessage)))

	choice, err := p.promptChoice(ctx, "[y] Continue to safety check  [n] Cancel", []string{"y", "n"})
	if err != nil {
		return false, err
	}
	return choice == "y", nil
}

// ResolveMLWarning implements workflow.Prompter. A context kept from a
// failed deep check can be resubmitted with "r".
func (p *Prompter) ResolveMLWarning(ctx context.Context, snap workflow.Snapshot) (workflow.Decision, error) {
	var b strings.Builder
	b.WriteString(p.intentLines(snap.Intent))
	b.WriteString("\n\n")
	b.WriteString(WarningStyle.Render(snap.MLMessage))
	b.WriteString("\n\n")
	b.WriteString(workflow.MsgProvideContext)

	prompt := "[c] Add context  [s] Skip and continue  [x] Cancel"
	valid := []string{"c", "s", "x"}
	if snap.Context != "" {
		b.WriteString("\n\n")
		b.WriteString(SubtleStyle.Render("Kept context: " + display.Truncate(snap.Context, 120)))
		prompt = "[r] Retry with kept context  " + prompt
		valid = append(valid, "r")
	}
	p.box(RenderWarningBox("This transfer may be fraudulent", b.String()))

	choice, err := p.promptChoice(ctx, prompt, valid)
	if err != nil {
		return workflow.Decision{}, err
	}

	switch choice {
	case "s":
		return workflow.Decision{Skip: true}, nil
	case "x":
		return workflow.Decision{Cancel: true}, nil
	case "r":
		return workflow.Decision{Context: snap.Context}, nil
	}

	p.println(FormatInfo("Describe the recipient or paste the chat. Finish with an empty line."))
	text, err := p.reader.ReadBlock(ctx)
	if err != nil {
		return workflow.Decision{}, p.inputError(err)
	}
	return workflow.Decision{Context: text}, nil
}

// ResolveLLMWarning implements workflow.Prompter.
func (p *Prompter) ResolveLLMWarning(ctx context.Context, snap workflow.Snapshot) (bool, error) {
	content := p.intentLines(snap.Intent) + "\n\n" + ErrorStyle.Render(snap.LLMVerdict)
	p.box(RenderDangerBox("High risk of scam", content))

	choice, err := p.promptChoice(ctx, "[x] Cancel transaction  [p] Proceed anyway", []string{"x", "p"})
	if err != nil {
		return false, err
	}
	return choice == "p", nil
}

// AcknowledgeError implements workflow.Prompter.
func (p *Prompter) AcknowledgeError(ctx context.Context, snap workflow.Snapshot) error {
	content := workflow.MsgCheckError
	if snap.LastError != nil {
		content += "\n\n" + SubtleStyle.Render(snap.LastError.Error())
	}
	p.box(RenderBox("Safety check unavailable", content))

	if _, err := fmt.Fprint(p.writer, FormatPrompt("Press Enter to go back")); err != nil {
		return fmt.Errorf("failed to write prompt: %w", err)
	}
	if _, err := p.reader.ReadLine(ctx); err != nil && !errors.Is(err, io.EOF) {
		return p.inputError(err)
	}
	return nil
}

// ShowRedirect implements workflow.Prompter with a countdown bar. It returns
// when delay has elapsed or ctx ends.
func (p *Prompter) ShowRedirect(ctx context.Context, delay time.Duration) {
	steps := int(delay / p.tick)
	if steps < 1 {
		steps = 1
	}
	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan]Opening confirmation...[reset]"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	ticker := time.NewTicker(delay / time.Duration(steps))
	defer ticker.Stop()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update countdown", "error", err)
			}
		}
	}
	if err := bar.Finish(); err != nil {
		slog.Warn("Failed to finish countdown", "error", err)
	}
}

// ConfirmChoice is the answer at the review step.
type ConfirmChoice int

// Review step answers.
const (
	ConfirmCancel ConfirmChoice = iota
	ConfirmSend
	ConfirmEdit
)

// ConfirmTransfer shows the review step and asks whether to send the money.
func (p *Prompter) ConfirmTransfer(ctx context.Context, summary handoff.Summary) (ConfirmChoice, error) {
	var b strings.Builder
	b.WriteString(p.intentLines(summary.Intent))
	fmt.Fprintf(&b, "\nFee:       %s", display.VND(summary.Fee))
	fmt.Fprintf(&b, "\nTotal:     %s", BoldStyle.Render(display.VND(summary.Total())))
	if summary.Intent.HasBalance() {
		fmt.Fprintf(&b, "\nRemaining: %s", display.VND(summary.Remaining))
	}
	if (model.Exit{Reason: summary.Reason}).IsBypass() {
		b.WriteString("\n\n")
		b.WriteString(WarningStyle.Render("You chose to continue past a safety warning."))
	}
	p.box(RenderBox("Confirm transfer", b.String()))

	choice, err := p.promptChoice(ctx, "[y] Send  [e] Edit  [n] Cancel", []string{"y", "e", "n"})
	if err != nil {
		return ConfirmCancel, err
	}
	switch choice {
	case "y":
		return ConfirmSend, nil
	case "e":
		return ConfirmEdit, nil
	default:
		return ConfirmCancel, nil
	}
}

// ShowEdit prints the transfer command prefilled with intent so the form
// can be resubmitted with changes.
func (p *Prompter) ShowEdit(intent model.TransferIntent) {
	p.println(FormatInfo("Edit the transfer and run it again:"))
	p.println("  " + EditCommand(intent))
}

// EditCommand renders the transfer command line for intent.
func EditCommand(intent model.TransferIntent) string {
	args := []string{
		"vigil transfer",
		fmt.Sprintf("--from %d", intent.SenderAccountID),
		"--to " + intent.ReceiverAccountNumber,
		"--bank " + intent.ReceiverBank,
		"--name " + strconv.Quote(intent.ReceiverName),
		"--amount " + intent.Amount.String(),
	}
	if intent.Description != "" {
		args = append(args, "--description "+strconv.Quote(intent.Description))
	}
	return strings.Join(args, " ")
}

// ShowReceipt prints the result of an executed transfer.
func (p *Prompter) ShowReceipt(receipt *handoff.Receipt) {
	content := fmt.Sprintf("Transfer ID: %s\nSent:        %s to %s\nNew balance: %s",
		receipt.TransferID,
		display.VND(receipt.AmountSent),
		receipt.ReceiverName,
		display.VND(receipt.NewBalance))
	if receipt.Message != "" {
		content += "\n\n" + SubtleStyle.Render(receipt.Message)
	}
	p.box(RenderBox(SuccessIcon+" Transfer "+receipt.Status, content))
}

// ShowExit prints how a confirmation-bound exit was reached. Other exits are
// already reported by the notifier.
func (p *Prompter) ShowExit(exit model.Exit) {
	switch {
	case exit.IsBypass():
		p.println(FormatWarning("Continuing to confirmation without a clean check (" + string(exit.Reason) + ")."))
	case exit.ProceedsToConfirmation():
		p.println(FormatSuccess("Safety check passed."))
	}
}

func (p *Prompter) intentLines(intent model.TransferIntent) string {
	lines := []string{
		"To:        " + display.Recipient(intent.ReceiverName, intent.ReceiverAccountNumber, intent.ReceiverBank),
		"Amount:    " + BoldStyle.Render(display.VND(intent.Amount)),
	}
	if intent.Description != "" {
		lines = append(lines, "Note:      "+intent.Description)
	}
	if intent.HasBalance() {
		lines = append(lines, "Balance:   "+display.VND(intent.SenderBalance)+" "+
			SubtleStyle.Render("("+display.BalanceAge(intent.BalanceAsOf, p.now())+")"))
	}
	return strings.Join(lines, "\n")
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			return "", p.inputError(err)
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		p.println(FormatError("Invalid choice. Please try again."))
	}
}

func (p *Prompter) inputError(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrInputTerminated
	}
	return err
}

func (p *Prompter) box(content string) {
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline", "error", err)
	}
	p.println(content)
}

func (p *Prompter) println(s string) {
	if _, err := fmt.Fprintln(p.writer, s); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
