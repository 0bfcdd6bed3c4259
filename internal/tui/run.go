package tui

import (
	"context"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
)

// Run drives c with the TUI as prompter. The controller should have been
// created with p as its notifier. Closing the TUI cancels the workflow.
func Run(ctx context.Context, p *Prompter, c *workflow.Controller, route *model.RouteState) (model.Exit, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- p.Start()
	}()
	go func() {
		select {
		case <-p.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	exit, err := workflow.Run(ctx, c, p, route)
	if err != nil && p.closedByUser() {
		err = ErrQuit
	}
	p.Finish(exit, err)

	if tuiErr := <-errChan; tuiErr != nil && err == nil {
		return exit, tuiErr
	}
	return exit, err
}
