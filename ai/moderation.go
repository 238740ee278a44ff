package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const moderationPromptTemplate = "Check if the following text contains offensive or inappropriate language: %s"

// FailPolicy decides what happens when the classifier stays unreachable after retries.
type FailPolicy string

const (
	// FailOpen admits content when the classifier cannot be consulted.
	FailOpen FailPolicy = "open"
	// FailClosed rejects content when the classifier cannot be consulted.
	FailClosed FailPolicy = "closed"
)

// ParseFailPolicy maps a configuration string onto a FailPolicy, defaulting to closed.
func ParseFailPolicy(s string) FailPolicy {
	if strings.EqualFold(s, string(FailOpen)) {
		return FailOpen
	}
	return FailClosed
}

// Moderator classifies free text as appropriate or not via the generative model.
// The classification is deliberately naive: the answer is positive when the model's
// reply contains "yes" anywhere, case-insensitively. Treat it as a placeholder
// policy, not a robust filter.
type Moderator struct {
	gen         TextGenerator
	maxAttempts int
	retryDelay  time.Duration
	policy      FailPolicy
	log         *zap.SugaredLogger
}

// NewModerator builds a Moderator with bounded retry and an explicit fail policy.
func NewModerator(gen TextGenerator, maxAttempts int, policy FailPolicy, log *zap.SugaredLogger) *Moderator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Moderator{
		gen:         gen,
		maxAttempts: maxAttempts,
		retryDelay:  500 * time.Millisecond,
		policy:      policy,
		log:         log,
	}
}

// IsInappropriate reports whether the given text should be rejected. When the
// classifier stays unreachable after the configured attempts, the fail policy
// decides: fail-closed reports true (reject), fail-open reports false (admit).
// The returned error carries the last classifier failure for logging; the bool
// is always usable.
func (m *Moderator) IsInappropriate(ctx context.Context, text string) (bool, error) {
	prompt := fmt.Sprintf(moderationPromptTemplate, text)

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		answer, err := m.gen.GenerateContent(ctx, prompt)
		if err == nil {
			return strings.Contains(strings.ToLower(answer), "yes"), nil
		}
		lastErr = err
		if m.log != nil {
			m.log.Warnf("moderation attempt %d/%d failed: %v", attempt, m.maxAttempts, err)
		}
		if attempt < m.maxAttempts {
			select {
			case <-ctx.Done():
				return m.policy == FailClosed, ctx.Err()
			case <-time.After(m.retryDelay):
			}
		}
	}

	return m.policy == FailClosed, lastErr
}
