package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	askIndex   string
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from a saved index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askIndex, "index", "", "key of the saved index (config key when empty)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the chunks the answer was based on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.newSession(ctx, "")
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if _, err := sess.LoadIndex(ctx, askIndex); err != nil {
		return err
	}

	ans, err := sess.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printAnswer(cmd.OutOrStdout(), ans, askSources)
	return nil
}
