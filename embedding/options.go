package embedding

// EmbeddingOptions configures a remote or local embedder.
type EmbeddingOptions struct {
	Model string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Dimensions is the vector length the model produces, when known up front.
	Dimensions int
	// BatchSize caps the texts sent per request.
	BatchSize int
	// Normalize scales every vector to unit length.
	Normalize bool
}

type Option func(*EmbeddingOptions)

func WithModel(model string) Option {
	return func(o *EmbeddingOptions) {
		o.Model = model
	}
}

func WithBaseURL(url string) Option {
	return func(o *EmbeddingOptions) {
		o.BaseURL = url
	}
}

func WithDimensions(dims int) Option {
	return func(o *EmbeddingOptions) {
		o.Dimensions = dims
	}
}

func WithBatchSize(size int) Option {
	return func(o *EmbeddingOptions) {
		if size > 0 {
			o.BatchSize = size
		}
	}
}

func WithNormalization(normalize bool) Option {
	return func(o *EmbeddingOptions) {
		o.Normalize = normalize
	}
}
