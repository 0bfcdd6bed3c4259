package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lockedBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInterruptHandler_NilWriterFallsBackToStdout(t *testing.T) {
	h := NewInterruptHandler(nil)
	assert.NotNil(t, h.writer)
	assert.False(t, h.WasInterrupted())
}

func TestInterruptHandler(t *testing.T) {
	tests := []struct {
		name            string
		interrupts      int
		cancelParent    bool
		wantInterrupted bool
		wantMessages    int
	}{
		{name: "interrupt cancels the check", interrupts: 1, wantInterrupted: true, wantMessages: 1},
		{name: "message is printed once", interrupts: 3, wantInterrupted: true, wantMessages: 1},
		{name: "parent cancellation is not an interrupt", cancelParent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &lockedBuffer{}
			h := NewInterruptHandler(out)

			parent, stop := context.WithCancel(context.Background())
			defer stop()
			ctx := h.HandleInterrupts(parent)
			assert.NoError(t, ctx.Err())

			if tt.cancelParent {
				stop()
			}
			for range tt.interrupts {
				h.interrupt()
			}
			<-ctx.Done()

			assert.Equal(t, tt.wantInterrupted, h.WasInterrupted())
			assert.Equal(t, tt.wantMessages, strings.Count(out.String(), "Transfer check interrupted!"))
			if tt.wantMessages > 0 {
				assert.Contains(t, out.String(), "No money was sent")
			}
		})
	}
}
