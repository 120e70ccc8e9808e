package chathistory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Memory binds a Repository to a window size.
type Memory struct {
	repo Repository
	opts *Options
}

func NewMemory(repo Repository, opts ...Option) *Memory {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Window <= 0 || options.Window > DefaultWindow {
		options.Window = DefaultWindow
	}
	if options.GenerateID == nil {
		options.GenerateID = DefaultIDGenerator
	}
	return &Memory{repo: repo, opts: options}
}

func (m *Memory) Window() int {
	return m.opts.Window
}

// NewConversationID returns a fresh conversation identifier.
func (m *Memory) NewConversationID() string {
	return m.opts.GenerateID()
}

// Load returns the remembered exchanges of a conversation.
func (m *Memory) Load(ctx context.Context, conversationID string) (History, error) {
	if strings.TrimSpace(conversationID) == "" {
		return History{}, ErrInvalidID
	}
	exchanges, err := m.repo.Recent(ctx, conversationID, m.opts.Window)
	if err != nil {
		return History{}, fmt.Errorf("failed to load history: %w", err)
	}
	return NewHistory(m.opts.Window, exchanges...), nil
}

// Record appends one exchange and returns the resulting history.
func (m *Memory) Record(ctx context.Context, conversationID, question, answer string) (History, error) {
	if strings.TrimSpace(conversationID) == "" {
		return History{}, ErrInvalidID
	}
	ex := Exchange{Question: question, Answer: answer, At: time.Now().UTC()}
	if err := m.repo.Append(ctx, conversationID, ex, m.opts.Window); err != nil {
		return History{}, fmt.Errorf("failed to record exchange: %w", err)
	}
	return m.Load(ctx, conversationID)
}

func (m *Memory) Clear(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidID
	}
	if err := m.repo.Clear(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
