package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/service"
)

// Verdicts a scam judge answers with.
const (
	VerdictScam    = "This is a scam."
	VerdictNotScam = "This is not a scam."
)

// ErrUnrecognizedVerdict means the model answered without either verdict.
var ErrUnrecognizedVerdict = errors.New("model did not return a scam verdict")

// ScamSystemPrompt instructs the model to answer with exactly one verdict.
const ScamSystemPrompt = `You review money transfers for a Vietnamese bank.
Decide whether the transfer described by the user is part of a scam such as
impersonation of police or bank staff, fake investment returns, romance
scams, job deposit requests or prize fees.
Answer with exactly one line: "This is a scam." or "This is not a scam."
You may add one short sentence of explanation after the verdict.`

// ScamJudge asks a language model whether a transfer narrative is a scam.
type ScamJudge struct {
	client    Client
	limiter   *rateLimiter
	cache     *verdictCache
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewScamJudge wraps a provider client with rate limiting and caching.
func NewScamJudge(client Client, cfg Config, logger *slog.Logger) *ScamJudge {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScamJudge{
		client:  client,
		limiter: newRateLimiter(cfg.RateLimit),
		cache:   newVerdictCache(cfg.CacheTTL),
		logger:  logger,
		retryOpts: service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Judge returns the verdict line for input. Identical inputs within the
// cache TTL are answered without calling the provider.
func (j *ScamJudge) Judge(ctx context.Context, input string) (string, error) {
	key := cacheKey(input)
	if verdict, ok := j.cache.get(key); ok {
		j.logger.Debug("scam verdict cache hit")
		return verdict, nil
	}

	var answer string
	err := common.WithRetry(ctx, func() error {
		if err := j.limiter.wait(ctx); err != nil {
			return common.Permanent(err)
		}
		var completeErr error
		answer, completeErr = j.client.Complete(ctx, ScamSystemPrompt, input)
		return completeErr
	}, j.retryOpts)
	if err != nil {
		return "", fmt.Errorf("scam check failed: %w", err)
	}

	verdict, err := ExtractVerdict(answer)
	if err != nil {
		j.logger.Warn("unrecognized scam verdict", "answer", answer)
		return "", err
	}

	j.cache.set(key, verdict)
	return verdict, nil
}

// ExtractVerdict finds the verdict in a model answer. "not a scam" is checked
// first since it contains "a scam".
func ExtractVerdict(answer string) (string, error) {
	lower := strings.ToLower(answer)
	switch {
	case strings.Contains(lower, "not a scam"):
		return VerdictNotScam, nil
	case strings.Contains(lower, "is a scam"):
		return VerdictScam, nil
	default:
		return "", ErrUnrecognizedVerdict
	}
}

func cacheKey(input string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(input)))
	return hex.EncodeToString(sum[:])
}
