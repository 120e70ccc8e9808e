package kb

import (
	"log/slog"

	"github.com/Abraxas-365/siteqa/vectorstore"
)

// DefaultIndexKey is the storage key used when none is given.
const DefaultIndexKey = "saved_index"

// Options contains configuration for a session
type Options struct {
	TopK           int
	ScoreThreshold float32
	IndexKey       string
	Logger         *slog.Logger
}

// Option is a function type to modify Options
type Option func(*Options)

// Default options
func defaultOptions() *Options {
	return &Options{
		TopK:     vectorstore.DefaultTopK,
		IndexKey: DefaultIndexKey,
	}
}

// WithTopK sets the number of chunks retrieved per question
func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithScoreThreshold drops retrieved chunks scoring below threshold
func WithScoreThreshold(threshold float32) Option {
	return func(o *Options) {
		o.ScoreThreshold = threshold
	}
}

// WithIndexKey sets the default key for SaveIndex and LoadIndex
func WithIndexKey(key string) Option {
	return func(o *Options) {
		o.IndexKey = key
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
