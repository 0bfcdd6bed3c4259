package stub

import (
	"context"
	"testing"

	"github.com/Veraticus/vigil/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordJudge(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantScam bool
	}{
		{name: "rent", input: "Paying my sister back for April rent", wantScam: false},
		{name: "police", input: "A man from the POLICE said my account is under investigation", wantScam: true},
		{name: "vietnamese prize", input: "Tôi được báo trúng thưởng xe máy, cần đóng phí", wantScam: true},
		{name: "investment", input: "Guaranteed return of 30% per month", wantScam: true},
	}

	judge := NewKeywordJudge()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := judge.Judge(context.Background(), tt.input)
			require.NoError(t, err)
			got, err := llm.ExtractVerdict(verdict)
			require.NoError(t, err)
			if tt.wantScam {
				assert.Equal(t, llm.VerdictScam, got)
			} else {
				assert.Equal(t, llm.VerdictNotScam, got)
			}
		})
	}
}
