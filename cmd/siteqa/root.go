package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Abraxas-365/siteqa/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "siteqa",
	Short: "Ask questions about a website",
	Long: `siteqa extracts the text of a web page, indexes it with embeddings and
answers questions using only what the page says.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, ".env")
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cfg.Log, verbose, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file (default ./siteqa.toml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

func newLogger(c config.LogConfig, verbose bool, w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	l := slog.New(handler)
	if err != nil {
		l.Warn("falling back to info logging", "error", err)
	}
	return l
}
