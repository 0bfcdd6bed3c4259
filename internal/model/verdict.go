package model

// MLVerdict is the response of the ML fraud heuristic.
type MLVerdict struct {
	Message string `json:"message"`
	IsSafe  bool   `json:"is_safe"`
}

// LLMVerdict is the free-text verdict of the LLM scam analysis.
type LLMVerdict struct {
	Verdict string `json:"verdict"`
}
