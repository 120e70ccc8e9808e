package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/redis/go-redis/v9"
)

var _ chathistory.Repository = (*HistoryRepository)(nil)

const (
	historyPrefix = "siteqa:history:"

	// DefaultTTL is how long an idle conversation is kept.
	DefaultTTL = 24 * time.Hour
)

// HistoryRepository keeps each conversation as a Redis list, oldest
// exchange at the head. Lists expire after the TTL without activity.
type HistoryRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryRepository creates a Redis-backed history repository. A ttl of
// zero uses DefaultTTL; a negative ttl disables expiry.
func NewHistoryRepository(client *redis.Client, ttl time.Duration) *HistoryRepository {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &HistoryRepository{client: client, ttl: ttl}
}

func historyKey(conversationID string) string {
	return historyPrefix + conversationID
}

// Append pushes the exchange and trims the list to the window
func (r *HistoryRepository) Append(ctx context.Context, conversationID string, ex chathistory.Exchange, window int) error {
	if window <= 0 {
		window = chathistory.DefaultWindow
	}

	data, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	key := historyKey(conversationID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-window), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	return nil
}

// Recent returns the newest limit exchanges, oldest first
func (r *HistoryRepository) Recent(ctx context.Context, conversationID string, limit int) ([]chathistory.Exchange, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	items, err := r.client.LRange(ctx, historyKey(conversationID), start, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	exchanges := make([]chathistory.Exchange, 0, len(items))
	for _, item := range items {
		var ex chathistory.Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func (r *HistoryRepository) Clear(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, historyKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
