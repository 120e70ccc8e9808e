package chathistory

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/siteqa/llm"
)

// DefaultWindow is the number of exchanges a conversation remembers.
const DefaultWindow = 5

var ErrInvalidID = errors.New("conversation id is required")

// Exchange is one answered question.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// History is a bounded FIFO of exchanges, oldest first. The zero value is an
// empty history with the default window. History values are never mutated in
// place; Append returns a new value.
type History struct {
	window    int
	exchanges []Exchange
}

func NewHistory(window int, exchanges ...Exchange) History {
	h := History{window: window}
	for _, ex := range exchanges {
		h = h.Append(ex)
	}
	return h
}

func (h History) Window() int {
	if h.window <= 0 {
		return DefaultWindow
	}
	return h.window
}

func (h History) Len() int {
	return len(h.exchanges)
}

// Append adds ex as the newest exchange, evicting the oldest ones once the
// window is full.
func (h History) Append(ex Exchange) History {
	w := h.Window()
	next := make([]Exchange, 0, min(len(h.exchanges)+1, w))
	if drop := len(h.exchanges) + 1 - w; drop > 0 {
		next = append(next, h.exchanges[drop:]...)
	} else {
		next = append(next, h.exchanges...)
	}
	next = append(next, ex)
	return History{window: h.window, exchanges: next}
}

// Exchanges returns a copy, oldest first.
func (h History) Exchanges() []Exchange {
	out := make([]Exchange, len(h.exchanges))
	copy(out, h.exchanges)
	return out
}

// Messages renders the history as alternating user and assistant turns.
func (h History) Messages() []llm.Message {
	msgs := make([]llm.Message, 0, 2*len(h.exchanges))
	for _, ex := range h.exchanges {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: ex.Question},
			llm.Message{Role: llm.RoleAssistant, Content: ex.Answer},
		)
	}
	return msgs
}

// Repository persists exchanges per conversation.
type Repository interface {
	// Append stores ex and discards everything but the newest window
	// exchanges of the conversation.
	Append(ctx context.Context, conversationID string, ex Exchange, window int) error

	// Recent returns at most limit exchanges, oldest first. Unknown
	// conversations have no exchanges.
	Recent(ctx context.Context, conversationID string, limit int) ([]Exchange, error)

	Clear(ctx context.Context, conversationID string) error
}
