// Package analysis interprets dream texts.
//
// An Analyzer never fails: errors turn into a short placeholder narrative so
// that a dream is always stored, analysed or not. The raw output is split
// into narrative and metrics by record.ParseAnalysis.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/entrhq/moodjournal/pkg/llm"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/metrics"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/types"
)

// Placeholders stored instead of an analysis.
const (
	Unavailable = "(analysis unavailable)"
	errorPrefix = "(analysis error: "
)

// Analyzer turns a dream text into an analysis ending in a metrics line.
type Analyzer interface {
	Analyze(ctx context.Context, text string) string
}

// Disabled is used when no model is configured.
type Disabled struct{}

// Analyze implements Analyzer.
func (Disabled) Analyze(context.Context, string) string {
	metrics.AnalysisDone("disabled", 0)
	return Unavailable
}

// IsPlaceholder reports whether s is a stand-in for a failed analysis.
func IsPlaceholder(s string) bool {
	return s == Unavailable || strings.HasPrefix(s, errorPrefix)
}

func errorPlaceholder(err error) string {
	return errorPrefix + err.Error() + ")"
}

// LLMAnalyzer asks a chat model for a Jungian reading of the dream.
type LLMAnalyzer struct {
	provider  llm.Provider
	breaker   *gobreaker.CircuitBreaker
	tokenizer *Tokenizer
	budget    int
	timeout   time.Duration
	logger    *logging.Logger
}

// Option configures an LLMAnalyzer.
type Option func(*LLMAnalyzer)

// WithTokenBudget truncates dream texts longer than n tokens. 0 disables.
func WithTokenBudget(n int) Option {
	return func(a *LLMAnalyzer) { a.budget = n }
}

// WithTimeout bounds a single analysis call.
func WithTimeout(d time.Duration) Option {
	return func(a *LLMAnalyzer) { a.timeout = d }
}

// WithLogger sets the analyzer logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *LLMAnalyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTokenizer overrides the token counter.
func WithTokenizer(t *Tokenizer) Option {
	return func(a *LLMAnalyzer) { a.tokenizer = t }
}

// WithBreaker opens the circuit after failures consecutive errors and keeps
// it open for cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(a *LLMAnalyzer) {
		a.breaker = newBreaker(failures, cooldown, a)
	}
}

// NewLLMAnalyzer creates an analyzer backed by provider.
func NewLLMAnalyzer(provider llm.Provider, opts ...Option) *LLMAnalyzer {
	a := &LLMAnalyzer{
		provider: provider,
		timeout:  90 * time.Second,
		logger:   logging.Discard("analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.breaker == nil {
		a.breaker = newBreaker(3, time.Minute, a)
	}
	if a.tokenizer == nil {
		a.tokenizer = NewTokenizer()
	}
	return a
}

func newBreaker(failures uint32, cooldown time.Duration, a *LLMAnalyzer) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dream-analysis",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.logger.Warnf("circuit breaker %s: %v -> %v", name, from, to)
		},
	})
}

// Analyze implements Analyzer.
func (a *LLMAnalyzer) Analyze(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if a.budget > 0 {
		text = a.tokenizer.Truncate(text, a.budget)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	out, err := a.breaker.Execute(func() (any, error) {
		reply, err := a.provider.Complete(ctx, []*types.Message{
			types.NewSystemMessage(systemPrompt()),
			types.NewUserMessage(text),
		})
		if err != nil {
			return nil, err
		}
		return reply.Content, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "open"
		}
		metrics.AnalysisDone(outcome, elapsed)
		a.logger.Errorf("analysis failed after %s: %v", elapsed.Round(time.Millisecond), err)
		return errorPlaceholder(err)
	}

	metrics.AnalysisDone("ok", elapsed)
	a.logger.Debugf("analysis took %s", elapsed.Round(time.Millisecond))
	return out.(string)
}

func systemPrompt() string {
	return fmt.Sprintf(`You are an analyst of dreams in the tradition of C. G. Jung.
Read the dream the user sends and write a careful interpretation: the main
symbols and archetypes, what they may say about the dreamer's current inner
state, and one question worth reflecting on. Answer in the language of the dream.

Finish with exactly one line of the form
%s {"intensity": <number from 0.5 to 3>, "emotions": [<labels>]}
where intensity is how emotionally charged the dream is and the emotions are
chosen only from this list: %s.`,
		record.MetricsMarker, strings.Join(record.Emotions, ", "))
}
