package assistant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmystocks/server/internal/modules/dashboard"
)

type scriptedChat struct {
	prompts [][]Message
	reply   string
	err     error
}

func (c *scriptedChat) Complete(ctx context.Context, messages []Message) (string, error) {
	prompt := make([]Message, len(messages))
	copy(prompt, messages)
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fakePerformance struct {
	perf []dashboard.SymbolPerformance
	err  error
}

func (f *fakePerformance) Performance(symbols []string, rangeName string) ([]dashboard.SymbolPerformance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.perf, nil
}

func newChatService(chat ChatClient, perf PerformanceSource) *Service {
	if perf == nil {
		perf = &fakePerformance{}
	}
	return NewService(NewStore(), chat, perf, zerolog.Nop())
}

func TestGreetingQuotesWatchlistMoves(t *testing.T) {
	perf := &fakePerformance{perf: []dashboard.SymbolPerformance{
		{Symbol: "AAPL", ChangePercent: 4.2},
		{Symbol: "MSFT", ChangePercent: -1.5},
	}}
	svc := newChatService(&scriptedChat{}, perf)

	msg := svc.Greeting("conv-1", "ada", []string{"AAPL", "MSFT"})
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Contains(t, msg.Content, "Hi ada, I'm Financio")
	assert.Contains(t, msg.Content, "AAPL is up 4.2%")
	assert.Contains(t, msg.Content, "MSFT is down 1.5%")

	// The greeting became part of the history.
	history := svc.History("conv-1")
	require.Len(t, history, 1)
}

func TestGreetingForGuestWithoutData(t *testing.T) {
	svc := newChatService(&scriptedChat{}, &fakePerformance{err: fmt.Errorf("offline")})

	msg := svc.Greeting("conv-1", "", []string{"AAPL"})
	assert.Contains(t, msg.Content, "Hi, I'm Financio")
	assert.NotContains(t, msg.Content, "watchlist has been doing")
}

func TestReplySendsFullHistoryToModel(t *testing.T) {
	chat := &scriptedChat{reply: "Diversification spreads risk."}
	svc := newChatService(chat, nil)

	_, err := svc.Reply(context.Background(), "conv-1", "What is diversification?", nil)
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), "conv-1", "And why does it matter?", nil)
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Equal(t, "Diversification spreads risk.", reply.Content)

	// Second prompt: system + first question + first answer + second question.
	require.Len(t, chat.prompts, 2)
	second := chat.prompts[1]
	require.Len(t, second, 4)
	assert.Equal(t, RoleSystem, second[0].Role)
	assert.Equal(t, "What is diversification?", second[1].Content)
	assert.Equal(t, "Diversification spreads risk.", second[2].Content)
	assert.Equal(t, "And why does it matter?", second[3].Content)

	history := svc.History("conv-1")
	assert.Len(t, history, 4)
}

func TestReplyAnswersPerformanceLocally(t *testing.T) {
	chat := &scriptedChat{reply: "should not be called"}
	perf := &fakePerformance{perf: []dashboard.SymbolPerformance{
		{Symbol: "AAPL", ChangePercent: 2.0},
	}}
	svc := newChatService(chat, perf)

	reply, err := svc.Reply(context.Background(), "conv-1", "How is my portfolio Performance?", []string{"AAPL"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "AAPL is up 2.0%")
	assert.Empty(t, chat.prompts, "performance questions must not hit the model")
}

func TestReplyValidation(t *testing.T) {
	svc := newChatService(&scriptedChat{}, nil)

	_, err := svc.Reply(context.Background(), "conv-1", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	// No chat client configured and not a local question.
	offline := newChatService(nil, nil)
	_, err = offline.Reply(context.Background(), "conv-1", "Tell me a joke", nil)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestClearForgetsConversation(t *testing.T) {
	svc := newChatService(&scriptedChat{reply: "ok"}, nil)

	_, err := svc.Reply(context.Background(), "conv-1", "hello there", nil)
	require.NoError(t, err)
	require.NotEmpty(t, svc.History("conv-1"))

	svc.Clear("conv-1")
	assert.Empty(t, svc.History("conv-1"))
}

func TestStorePruneIdle(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Append("old", Message{Role: RoleUser, Content: "hi"})
	now = now.Add(3 * time.Hour)
	store.Append("fresh", Message{Role: RoleUser, Content: "hi"})

	removed := store.PruneIdle()
	assert.Equal(t, 1, removed)
	assert.Empty(t, store.History("old"))
	assert.NotEmpty(t, store.History("fresh"))
}
