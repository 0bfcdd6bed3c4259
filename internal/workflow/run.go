package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/vigil/internal/model"
)

// Run drives c to an exit, asking p for every user decision. It closes the
// controller before returning.
func Run(ctx context.Context, c *Controller, p Prompter, route *model.RouteState) (model.Exit, error) {
	defer c.Close()

	if err := c.Start(ctx, route); err != nil {
		if snap := c.Snapshot(); snap.Done() {
			return *snap.Exit, err
		}
		return model.Exit{}, err
	}

	for {
		snap, err := c.Await(ctx)
		if err != nil {
			return model.Exit{}, err
		}
		if snap.Done() {
			return *snap.Exit, nil
		}

		if err := step(ctx, c, p, snap); err != nil {
			return model.Exit{}, err
		}
	}
}

// step answers the decision the current snapshot is waiting on.
func step(ctx context.Context, c *Controller, p Prompter, snap Snapshot) error {
	switch snap.Status {
	case model.StatusHighAmount:
		confirmed, err := p.ConfirmHighAmount(ctx, snap)
		if err != nil {
			return fmt.Errorf("high amount prompt: %w", err)
		}
		if confirmed {
			return c.ConfirmHighAmount()
		}
		return c.Cancel()

	case model.StatusMLWarning:
		decision, err := p.ResolveMLWarning(ctx, snap)
		if err != nil {
			return fmt.Errorf("ml warning prompt: %w", err)
		}
		switch {
		case decision.Cancel:
			return c.Cancel()
		case decision.Skip:
			return c.Skip()
		}
		// Blank context is reported through the notifier and re-prompted.
		if err := c.SubmitContext(decision.Context); err != nil && !errors.Is(err, ErrEmptyContext) {
			return err
		}
		return nil

	case model.StatusLLMWarning:
		proceed, err := p.ResolveLLMWarning(ctx, snap)
		if err != nil {
			return fmt.Errorf("llm warning prompt: %w", err)
		}
		if proceed {
			return c.ContinueAnyway()
		}
		return c.Cancel()

	case model.StatusError:
		if err := p.AcknowledgeError(ctx, snap); err != nil {
			return fmt.Errorf("error prompt: %w", err)
		}
		return c.Back()

	case model.StatusSafe:
		p.ShowRedirect(ctx, c.SafeDelay())
		_, err := c.WaitFor(ctx, func(s Snapshot) bool { return s.Done() })
		return err

	default:
		return fmt.Errorf("%w: unexpected status %s", ErrInvalidTransition, snap.Status)
	}
}
