package vectorstore

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Options contains configuration for the retriever
type Options struct {
	TopK           int
	ScoreThreshold float32
}

func defaultOptions() *Options {
	return &Options{
		TopK: DefaultTopK,
	}
}

// Option is a function type to modify Options
type Option func(*Options)

// WithTopK sets how many chunks are returned when the caller passes k == 0
func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithScoreThreshold sets the minimum similarity score threshold
func WithScoreThreshold(threshold float32) Option {
	return func(o *Options) {
		o.ScoreThreshold = threshold
	}
}
