package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	answers []string
	errs    []error
	prompts []string
	mu      sync.Mutex
}

func (s *scriptedClient) Complete(_ context.Context, _, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return s.answers[len(s.answers)-1], nil
}

func TestExtractVerdict(t *testing.T) {
	tests := []struct {
		answer  string
		want    string
		wantErr bool
	}{
		{answer: "This is not a scam.", want: VerdictNotScam},
		{answer: "THIS IS A SCAM. The caller claims to be police.", want: VerdictScam},
		{answer: "Verdict: this is not a scam, it is rent", want: VerdictNotScam},
		{answer: "I cannot tell.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, err := ExtractVerdict(tt.answer)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnrecognizedVerdict)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScamJudge_CachesVerdicts(t *testing.T) {
	client := &scriptedClient{answers: []string{"This is a scam. Fake prize fee."}}
	judge := NewScamJudge(client, Config{}, nil)

	first, err := judge.Judge(context.Background(), "They said I won a prize")
	require.NoError(t, err)
	second, err := judge.Judge(context.Background(), "  They said I won a prize  ")
	require.NoError(t, err)

	assert.Equal(t, VerdictScam, first)
	assert.Equal(t, first, second)
	assert.Len(t, client.prompts, 1)
}

func TestScamJudge_RetriesTransientErrors(t *testing.T) {
	client := &scriptedClient{
		errs:    []error{&common.RetryableError{Err: errors.New("502"), Retryable: true}},
		answers: []string{"", "This is not a scam."},
	}
	judge := NewScamJudge(client, Config{MaxRetries: 3, RetryDelay: time.Millisecond}, nil)

	verdict, err := judge.Judge(context.Background(), "rent for April")
	require.NoError(t, err)
	assert.Equal(t, VerdictNotScam, verdict)
	assert.Len(t, client.prompts, 2)
}

func TestScamJudge_Errors(t *testing.T) {
	t.Run("permanent error is not retried", func(t *testing.T) {
		client := &scriptedClient{errs: []error{common.Permanent(errors.New("bad key"))}, answers: []string{""}}
		judge := NewScamJudge(client, Config{MaxRetries: 3, RetryDelay: time.Millisecond}, nil)

		_, err := judge.Judge(context.Background(), "x")
		require.Error(t, err)
		assert.Len(t, client.prompts, 1)
	})

	t.Run("unrecognized answer is not cached", func(t *testing.T) {
		client := &scriptedClient{answers: []string{"maybe"}}
		judge := NewScamJudge(client, Config{}, nil)

		_, err := judge.Judge(context.Background(), "x")
		assert.ErrorIs(t, err, ErrUnrecognizedVerdict)
		assert.Equal(t, 0, judge.cache.size())
	})
}
