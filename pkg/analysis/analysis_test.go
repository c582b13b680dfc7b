package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/types"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls [][]*types.Message
	reply string
	err   error
}

func (f *fakeProvider) Complete(_ context.Context, messages []*types.Message) (*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return nil, f.err
	}
	return &types.Message{Role: types.RoleAssistant, Content: f.reply}, nil
}

func (f *fakeProvider) GetModel() string   { return "fake" }
func (f *fakeProvider) GetBaseURL() string { return "" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestAnalyze(t *testing.T) {
	provider := &fakeProvider{reply: "Water.\nMETRICS: {\"intensity\": 2, \"emotions\": [\"страх\"]}"}
	a := NewLLMAnalyzer(provider, WithTokenizer(&Tokenizer{}))

	out := a.Analyze(context.Background(), "I flew\nover water")
	assert.Equal(t, provider.reply, out)

	require.Equal(t, 1, provider.callCount())
	msgs := provider.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, record.MetricsMarker)
	assert.Contains(t, msgs[0].Content, "радость")
	assert.Equal(t, "I flew\nover water", msgs[1].Content)
}

func TestAnalyzeEmptyText(t *testing.T) {
	provider := &fakeProvider{reply: "x"}
	a := NewLLMAnalyzer(provider, WithTokenizer(&Tokenizer{}))
	assert.Equal(t, "", a.Analyze(context.Background(), "  \n "))
	assert.Zero(t, provider.callCount())
}

func TestAnalyzeErrorBecomesPlaceholder(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	a := NewLLMAnalyzer(provider, WithTokenizer(&Tokenizer{}))

	out := a.Analyze(context.Background(), "a dream")
	assert.True(t, IsPlaceholder(out))
	assert.Contains(t, out, "rate limited")

	narrative, metrics := record.ParseAnalysis(out)
	assert.Equal(t, out, narrative)
	assert.Empty(t, metrics)
}

func TestBreakerOpens(t *testing.T) {
	provider := &fakeProvider{err: errors.New("down")}
	a := NewLLMAnalyzer(provider, WithTokenizer(&Tokenizer{}), WithBreaker(2, time.Hour))
	ctx := context.Background()

	a.Analyze(ctx, "one")
	a.Analyze(ctx, "two")
	out := a.Analyze(ctx, "three")

	assert.Equal(t, 2, provider.callCount(), "open circuit must not reach the provider")
	assert.True(t, IsPlaceholder(out))
	assert.Contains(t, out, "circuit breaker is open")
}

func TestTokenBudgetTruncates(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	a := NewLLMAnalyzer(provider, WithTokenizer(&Tokenizer{}), WithTokenBudget(5))

	a.Analyze(context.Background(), strings.Repeat("abcd", 50))
	require.Equal(t, 1, provider.callCount())
	assert.Equal(t, strings.Repeat("abcd", 5), provider.calls[0][1].Content)
}

func TestApproximateTruncateKeepsRunes(t *testing.T) {
	tok := &Tokenizer{}
	text := strings.Repeat("сон", 20) // two bytes per rune
	out := tok.Truncate(text, 3)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 12)
	assert.True(t, strings.HasPrefix(text, out))
	assert.Equal(t, text, tok.Truncate(text, 0))
}

func TestExactTokenizer(t *testing.T) {
	tok := NewTokenizer()
	if !tok.Exact() {
		t.Skip("BPE tables unavailable in this environment")
	}
	text := strings.Repeat("I flew over dark water. ", 40)
	out := tok.Truncate(text, 10)
	assert.LessOrEqual(t, tok.Count(out), 10)
	assert.True(t, strings.HasPrefix(text, out))
}

func TestDisabled(t *testing.T) {
	out := Disabled{}.Analyze(context.Background(), "dream")
	assert.Equal(t, Unavailable, out)
	assert.True(t, IsPlaceholder(out))
}
