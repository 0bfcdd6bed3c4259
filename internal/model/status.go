package model

// CheckStatus is the active phase of the safety workflow.
type CheckStatus string

// Check status constants.
const (
	// StatusIdle is the status of a workflow that has not been started.
	StatusIdle        CheckStatus = "idle"
	StatusCheckingML  CheckStatus = "checking_ml"
	StatusHighAmount  CheckStatus = "high_amount"
	StatusMLWarning   CheckStatus = "ml_warning"
	StatusCheckingLLM CheckStatus = "checking_llm"
	StatusLLMWarning  CheckStatus = "llm_warning"
	StatusSafe        CheckStatus = "safe"
	StatusError       CheckStatus = "error"
)

var validStatuses = map[CheckStatus]bool{
	StatusIdle:        true,
	StatusCheckingML:  true,
	StatusHighAmount:  true,
	StatusMLWarning:   true,
	StatusCheckingLLM: true,
	StatusLLMWarning:  true,
	StatusSafe:        true,
	StatusError:       true,
}

// Checks in flight. No user action is accepted while one is active.
var checkingStatuses = map[CheckStatus]bool{
	StatusCheckingML:  true,
	StatusCheckingLLM: true,
}

// transitions lists every internal status change the workflow may make.
// ml_warning and checking_llm are the only pair that may alternate.
var transitions = map[CheckStatus][]CheckStatus{
	StatusIdle:        {StatusHighAmount, StatusCheckingML},
	StatusHighAmount:  {StatusCheckingML},
	StatusCheckingML:  {StatusSafe, StatusMLWarning, StatusError},
	StatusMLWarning:   {StatusCheckingLLM},
	StatusCheckingLLM: {StatusSafe, StatusLLMWarning, StatusMLWarning},
}

// IsValid returns true if the status is a known workflow status.
func (s CheckStatus) IsValid() bool {
	return validStatuses[s]
}

// IsChecking returns true while a remote check is in flight.
func (s CheckStatus) IsChecking() bool {
	return checkingStatuses[s]
}

// CanTransition reports whether the workflow may move from s to next.
func (s CheckStatus) CanTransition(next CheckStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s CheckStatus) String() string {
	return string(s)
}
