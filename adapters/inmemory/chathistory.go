package inmemory

import (
	"context"
	"sync"

	"github.com/Abraxas-365/siteqa/chathistory"
)

var _ chathistory.Repository = (*InMemoryRepository)(nil)

// InMemoryRepository implements chathistory.Repository using in-memory storage
type InMemoryRepository struct {
	conversations map[string][]chathistory.Exchange
	mu            sync.RWMutex
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		conversations: make(map[string][]chathistory.Exchange),
	}
}

func (r *InMemoryRepository) Append(ctx context.Context, conversationID string, ex chathistory.Exchange, window int) error {
	if window <= 0 {
		window = chathistory.DefaultWindow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exchanges := append(r.conversations[conversationID], ex)
	if len(exchanges) > window {
		exchanges = append([]chathistory.Exchange(nil), exchanges[len(exchanges)-window:]...)
	}
	r.conversations[conversationID] = exchanges
	return nil
}

func (r *InMemoryRepository) Recent(ctx context.Context, conversationID string, limit int) ([]chathistory.Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exchanges := r.conversations[conversationID]
	if limit > 0 && len(exchanges) > limit {
		exchanges = exchanges[len(exchanges)-limit:]
	}

	out := make([]chathistory.Exchange, len(exchanges))
	copy(out, exchanges)
	return out, nil
}

func (r *InMemoryRepository) Clear(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conversations, conversationID)
	return nil
}
