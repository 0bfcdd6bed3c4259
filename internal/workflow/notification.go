package workflow

// Level is the severity of a notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a short message for the user, the terminal equivalent of
// a toast.
type Notification struct {
	Level   Level
	Message string
}

// User-facing messages.
const (
	MsgMissingData      = "Missing transaction data. Redirecting..."
	MsgSafeRedirect     = "All clear! Redirecting you to confirm the transfer..."
	MsgCheckError       = "We couldn't complete the safety check. Please try again later."
	MsgProvideContext   = "Please describe how you know the recipient or paste the conversation that led to this transfer."
	MsgCancelled        = "Transaction cancelled."
	MsgDeepCheckFailed  = "The deeper analysis could not be completed. Your context was kept, you can try again."
	MsgHighAmountDetail = "This is an unusual amount to transfer. Please make sure you know the recipient and this transaction is legitimate."
)
