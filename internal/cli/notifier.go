package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/vigil/internal/workflow"
)

var _ workflow.Notifier = (*Notifier)(nil)

// Notifier prints workflow notifications as styled lines.
type Notifier struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewNotifier creates a notifier writing to w.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{writer: w}
}

// Notify implements workflow.Notifier.
func (n *Notifier) Notify(note workflow.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintln(n.writer, FormatNotification(note)); err != nil {
		slog.Warn("Failed to write notification", "error", err)
	}
}

// FormatNotification renders a notification with the icon for its level.
func FormatNotification(note workflow.Notification) string {
	switch note.Level {
	case workflow.LevelSuccess:
		return FormatSuccess(note.Message)
	case workflow.LevelWarning:
		return FormatWarning(note.Message)
	case workflow.LevelError:
		return FormatError(note.Message)
	default:
		return FormatInfo(note.Message)
	}
}
