package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// InterruptHandler turns the first SIGINT or SIGTERM during a transfer
// check into a cancelled context and a note that no money moved.
type InterruptHandler struct {
	writer      io.Writer
	cancel      context.CancelFunc
	once        sync.Once
	interrupted atomic.Bool
}

// NewInterruptHandler creates a handler printing to writer, or stdout when
// writer is nil.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts derives a context cancelled by the first signal. Signals
// are no longer watched once ctx ends.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	ctx, h.cancel = context.WithCancel(ctx)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			h.interrupt()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) interrupt() {
	h.once.Do(func() {
		h.interrupted.Store(true)
		msg := "\n\n" + FormatWarning("Transfer check interrupted!") + "\n" +
			FormatInfo("No money was sent. Start again with: vigil transfer") + "\n"
		if _, err := fmt.Fprint(h.writer, msg); err != nil {
			slog.Warn("Failed to write interrupt message", "error", err)
		}
	})
	if h.cancel != nil {
		h.cancel()
	}
}

// WasInterrupted reports whether a signal cancelled the check.
func (h *InterruptHandler) WasInterrupted() bool {
	return h.interrupted.Load()
}
