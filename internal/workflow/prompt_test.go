package workflow

import (
	"testing"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuildScamPrompt(t *testing.T) {
	intent := model.TransferIntent{
		ReceiverName:          "Pham Thi D",
		ReceiverAccountNumber: "5555666677",
		Amount:                decimal.NewFromInt(3_000_000),
	}

	got := BuildScamPrompt(intent, "  She says she is from the tax office  ")

	want := `A user is making a transfer with the following details:
- Amount: 3000000
- Recipient: Pham Thi D (5555666677)
- Description: Not provided

The user has provided the following additional context or chat messages:
---
She says she is from the tax office
---
Based on all this information, does this sound like a scam?`
	assert.Equal(t, want, got)

	intent.Description = "Tax refund fee"
	assert.Contains(t, BuildScamPrompt(intent, "x"), "- Description: Tax refund fee\n")
}

func TestIsNotScam(t *testing.T) {
	tests := []struct {
		verdict string
		want    bool
	}{
		{"This is not a scam", true},
		{"Not a scam.", true},
		{"NOT A SCAM", true},
		{"This is not\na   scam.", true},
		{"Ｎｏｔ ａ ｓｃａｍ", true},
		{"This is a scam", false},
		{"This is a scam.", false},
		{"", false},
		{"I cannot determine whether this is a scam", false},
	}

	for _, tt := range tests {
		t.Run(tt.verdict, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotScam(tt.verdict))
		})
	}
}
