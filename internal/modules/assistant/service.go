package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/modules/dashboard"
)

// PerformanceSource summarizes watchlist returns for the local answers.
type PerformanceSource interface {
	Performance(symbols []string, rangeName string) ([]dashboard.SymbolPerformance, error)
}

// performanceRange is the window quoted in greetings and summaries.
const performanceRange = "1M"

// Service drives conversations. The chat client may be nil, in which case
// only the local answers work.
type Service struct {
	store       *Store
	chat        ChatClient
	performance PerformanceSource
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates the assistant service.
func NewService(store *Store, chat ChatClient, performance PerformanceSource, log zerolog.Logger) *Service {
	return &Service{
		store:       store,
		chat:        chat,
		performance: performance,
		now:         time.Now,
		log:         log.With().Str("service", "assistant").Logger(),
	}
}

// Greeting opens a conversation, quoting the watchlist's recent moves when
// price data is available.
func (s *Service) Greeting(conversationID string, username string, symbols []string) Message {
	var b strings.Builder
	if username != "" {
		fmt.Fprintf(&b, "Hi %s, I'm %s, your stock advisor.", username, BotName)
	} else {
		fmt.Fprintf(&b, "Hi, I'm %s, your stock advisor.", BotName)
	}

	if summary := s.performanceSummary(symbols); summary != "" {
		b.WriteString(" Here's how your watchlist has been doing: ")
		b.WriteString(summary)
	}
	b.WriteString(" Ask me anything about your stocks.")

	msg := Message{Role: RoleAssistant, Content: b.String(), SentAt: s.now()}
	s.store.Append(conversationID, msg)
	return msg
}

// Reply processes one user turn. Questions about performance are answered
// locally from price data; everything else goes to the language model with
// the full conversation history.
func (s *Service) Reply(ctx context.Context, conversationID, text string, symbols []string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	history := s.store.Append(conversationID, Message{
		Role:    RoleUser,
		Content: text,
		SentAt:  s.now(),
	})

	if isPerformanceQuestion(text) {
		content := s.performanceSummary(symbols)
		if content == "" {
			content = "I couldn't pull price data for your watchlist right now. Try again in a bit."
		}
		reply := Message{Role: RoleAssistant, Content: content, SentAt: s.now()}
		s.store.Append(conversationID, reply)
		return reply, nil
	}

	if s.chat == nil {
		return Message{}, ErrNotAvailable
	}

	prompt := make([]Message, 0, len(history)+1)
	prompt = append(prompt, Message{Role: RoleSystem, Content: systemPrompt})
	prompt = append(prompt, history...)

	content, err := s.chat.Complete(ctx, prompt)
	if err != nil {
		return Message{}, fmt.Errorf("generating reply: %w", err)
	}

	reply := Message{Role: RoleAssistant, Content: content, SentAt: s.now()}
	s.store.Append(conversationID, reply)
	return reply, nil
}

// History returns the conversation so far.
func (s *Service) History(conversationID string) []Message {
	return s.store.History(conversationID)
}

// Clear forgets the conversation.
func (s *Service) Clear(conversationID string) {
	s.store.Clear(conversationID)
}

func isPerformanceQuestion(text string) bool {
	return strings.Contains(strings.ToLower(text), "performance")
}

func (s *Service) performanceSummary(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}

	perf, err := s.performance.Performance(symbols, performanceRange)
	if err != nil || len(perf) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to load watchlist performance")
		}
		return ""
	}

	parts := make([]string, 0, len(perf))
	for _, p := range perf {
		direction := "up"
		if p.ChangePercent < 0 {
			direction = "down"
		}
		parts = append(parts, fmt.Sprintf("%s is %s %.1f%% over the last month",
			p.Symbol, direction, abs(p.ChangePercent)))
	}
	return strings.Join(parts, ", ") + "."
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
