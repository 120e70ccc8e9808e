package main

import (
	"context"

	"github.com/Abraxas-365/siteqa/kb"
	"github.com/Abraxas-365/siteqa/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question answering API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (config server.addr when empty)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	registry := server.NewRegistry(func(ctx context.Context) (*kb.Session, error) {
		return a.newSession(ctx, "")
	})
	srv := server.New(registry,
		server.WithLogger(logger),
		server.WithDebug(verbose),
	)
	return srv.Run(ctx, addr)
}
