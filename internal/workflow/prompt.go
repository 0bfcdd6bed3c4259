package workflow

import (
	"fmt"
	"strings"

	"github.com/Veraticus/vigil/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const safeVerdictPhrase = "not a scam"

const scamPromptTemplate = `A user is making a transfer with the following details:
- Amount: %s
- Recipient: %s (%s)
- Description: %s

The user has provided the following additional context or chat messages:
---
%s
---
Based on all this information, does this sound like a scam?`

// BuildScamPrompt embeds the transfer details and the user's narrative in
// the text sent to the scam analysis.
func BuildScamPrompt(intent model.TransferIntent, userContext string) string {
	description := strings.TrimSpace(intent.Description)
	if description == "" {
		description = "Not provided"
	}
	return fmt.Sprintf(scamPromptTemplate,
		intent.Amount.String(),
		intent.ReceiverName,
		intent.ReceiverAccountNumber,
		description,
		strings.TrimSpace(userContext))
}

// IsNotScam reports whether an LLM verdict clears the transfer. Only a verdict
// containing "not a scam" does; anything else, including an empty verdict,
// is treated as a warning.
func IsNotScam(verdict string) bool {
	normalized := cases.Fold().String(norm.NFKC.String(verdict))
	normalized = strings.Join(strings.Fields(normalized), " ")
	return strings.Contains(normalized, safeVerdictPhrase)
}
