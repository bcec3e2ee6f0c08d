// Package synth sends assembled prompts to the completion service and
// shapes the answer shown to the user.
package synth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/llm"
)

// ErrCompletionFailed wraps every failure of the completion service.
var ErrCompletionFailed = errors.New("synth: completion failed")

// Options are the fixed parameters handed to the completion service.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultOptions mirrors the stock completion settings.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   2000,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
	}
}

// Synthesizer calls the completion service with a bounded timeout.
type Synthesizer struct {
	provider llm.Provider
	opts     Options
	logger   *zap.Logger
}

// New creates a Synthesizer. A nil logger discards output.
func New(provider llm.Provider, opts Options, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{provider: provider, opts: opts, logger: logger}
}

// Complete sends p and returns the normalized answer. Any failure,
// including an empty answer or a timeout, is reported as
// ErrCompletionFailed.
func (s *Synthesizer) Complete(ctx context.Context, p assembler.AssembledPrompt) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrCompletionFailed)
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var messages []llm.Message
	if sys := strings.TrimSpace(p.System); sys != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sys})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: strings.TrimSpace(p.User)})

	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       s.opts.Model,
		Messages:    messages,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCompletionFailed, s.provider.Name(), err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: %s: no response", ErrCompletionFailed, s.provider.Name())
	}

	answer := Normalize(resp.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", ErrCompletionFailed)
	}

	s.logger.Debug("completion",
		zap.String("provider", s.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("cost_usd", llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)),
		zap.Duration("duration", time.Since(start)))
	return answer, nil
}

// Apology is the canned answer when every information source failed.
func Apology(lang language.Language) string {
	if lang == language.German {
		return "Es ist ein Fehler aufgetreten. Bitte versuche es erneut."
	}
	return "An error occurred. Please try again."
}

var blankLines = regexp.MustCompile(`\n\s*\n\s*\n`)

// Normalize trims the answer and collapses runs of blank lines.
func Normalize(text string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
