package model

// ExitKind is the step the workflow hands control to when it ends.
type ExitKind string

// Exit destinations.
const (
	ExitConfirmation ExitKind = "confirmation"
	ExitTransferForm ExitKind = "transfer_form"
)

// ExitReason records why the workflow ended the way it did.
type ExitReason string

// Exit reasons.
const (
	ReasonSafe            ExitReason = "safe"
	ReasonSkipped         ExitReason = "skipped"
	ReasonContinuedAnyway ExitReason = "continued_anyway"
	ReasonCancelled       ExitReason = "cancelled"
	ReasonCheckFailed     ExitReason = "check_failed"
	ReasonMissingData     ExitReason = "missing_data"
)

// Exit is the terminal result of one safety workflow run.
type Exit struct {
	Kind   ExitKind
	Reason ExitReason
}

// IsBypass reports whether the user forced the transfer past a warning.
func (e Exit) IsBypass() bool {
	return e.Reason == ReasonSkipped || e.Reason == ReasonContinuedAnyway
}

// ProceedsToConfirmation reports whether the transfer may continue.
func (e Exit) ProceedsToConfirmation() bool {
	return e.Kind == ExitConfirmation
}

// String returns kind/reason.
func (e Exit) String() string {
	return string(e.Kind) + "/" + string(e.Reason)
}
