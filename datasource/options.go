package datasource

import "time"

const (
	DefaultTimeout         = 15 * time.Second
	DefaultMinStaticLength = 500
	DefaultMinTextLength   = 100
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ExtractOptions configures extractors. A zero length threshold disables
// that check.
type ExtractOptions struct {
	Timeout         time.Duration
	UserAgent       string
	MinStaticLength int
	MinTextLength   int
}

// Option is a function type to modify ExtractOptions
type Option func(*ExtractOptions)

func DefaultExtractOptions() *ExtractOptions {
	return &ExtractOptions{
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MinStaticLength: DefaultMinStaticLength,
		MinTextLength:   DefaultMinTextLength,
	}
}

func ApplyOptions(opts ...Option) *ExtractOptions {
	options := DefaultExtractOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *ExtractOptions) {
		o.Timeout = timeout
	}
}

func WithUserAgent(ua string) Option {
	return func(o *ExtractOptions) {
		o.UserAgent = ua
	}
}

// WithMinStaticLength sets how much text a static fetch must yield before
// rendering is suggested instead
func WithMinStaticLength(n int) Option {
	return func(o *ExtractOptions) {
		o.MinStaticLength = n
	}
}

// WithMinTextLength sets the minimum length of any extracted text
func WithMinTextLength(n int) Option {
	return func(o *ExtractOptions) {
		o.MinTextLength = n
	}
}
