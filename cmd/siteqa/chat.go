package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Abraxas-365/siteqa/kb"
	"github.com/spf13/cobra"
)

var (
	chatRenderJS bool
	chatIndex    string
	chatSources  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [url]",
	Short: "Ask questions about a site interactively",
	Long: `Starts a conversation about one site. Give a URL to crawl it first, or
--index to load a saved index. Inside the chat:

  /crawl <url>   index another page
  /save [key]    save the current index
  /clear         forget the conversation
  /reset         drop the index and the conversation
  /info          show what is indexed
  /quit          leave`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().BoolVar(&chatRenderJS, "render-js", false, "render pages in headless Chrome before extracting")
	chatCmd.Flags().StringVar(&chatIndex, "index", "", "load a saved index instead of crawling")
	chatCmd.Flags().BoolVar(&chatSources, "sources", false, "print the chunks each answer was based on")
	rootCmd.AddCommand(chatCmd)
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

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

	switch {
	case len(args) == 1:
		res, err := sess.Crawl(ctx, args[0], chatRenderJS)
		if err != nil {
			return err
		}
		printCrawl(out, res)
	case chatIndex != "":
		info, err := sess.LoadIndex(ctx, chatIndex)
		if err != nil {
			return err
		}
		printInfo(out, *info)
	}

	r := &repl{session: sess, renderJS: chatRenderJS, sources: chatSources, out: out}
	return r.run(ctx, cmd.InOrStdin())
}

// repl reads questions and slash commands line by line.
type repl struct {
	session  *kb.Session
	renderJS bool
	sources  bool
	out      io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done := r.handle(ctx, line); done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// handle runs one line and reports whether the chat should end. Errors
// are printed so one failed question does not end the conversation.
func (r *repl) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		ans, err := r.session.Ask(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return false
		}
		printAnswer(r.out, ans, r.sources)
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch command {
	case "/quit", "/exit":
		return true
	case "/clear":
		if err = r.session.ClearHistory(ctx); err == nil {
			fmt.Fprintln(r.out, "Conversation cleared.")
		}
	case "/reset":
		if err = r.session.Reset(ctx); err == nil {
			fmt.Fprintln(r.out, "Index and conversation dropped.")
		}
	case "/save":
		if err = r.session.SaveIndex(ctx, arg); err == nil {
			fmt.Fprintln(r.out, "Index saved.")
		}
	case "/info":
		printInfo(r.out, r.session.Info(ctx))
	case "/crawl":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /crawl <url>")
			return false
		}
		var res *kb.CrawlResult
		if res, err = r.session.Crawl(ctx, arg, r.renderJS); err == nil {
			printCrawl(r.out, res)
		}
	default:
		fmt.Fprintf(r.out, "unknown command %s\n", command)
	}
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
	return false
}
