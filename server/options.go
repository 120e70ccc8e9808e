package server

import (
	"log/slog"
	"time"
)

type Options struct {
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
	// Debug keeps gin's request logging and debug mode.
	Debug bool
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		ShutdownTimeout: 10 * time.Second,
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ShutdownTimeout = d
	}
}

func WithDebug(debug bool) Option {
	return func(o *Options) {
		o.Debug = debug
	}
}
