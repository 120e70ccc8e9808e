package chathistory

import "github.com/google/uuid"

type IDGenerator func() string

// Options contains configuration for chat history memory
type Options struct {
	Window     int         // Number of exchanges to keep per conversation
	GenerateID IDGenerator // Function to generate conversation IDs
}

// Option is a function type to modify Options
type Option func(*Options)

// WithWindow sets the number of exchanges to keep, at most DefaultWindow
func WithWindow(window int) Option {
	return func(o *Options) {
		o.Window = window
	}
}

// DefaultIDGenerator generates a UUID string
func DefaultIDGenerator() string {
	return uuid.New().String()
}

// WithGenerateID sets the ID generation function
func WithGenerateID(generator IDGenerator) Option {
	return func(o *Options) {
		o.GenerateID = generator
	}
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Window:     DefaultWindow,
		GenerateID: DefaultIDGenerator,
	}
}
