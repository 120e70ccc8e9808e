package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// defaultKeyFlag marks --save given without a value.
const defaultKeyFlag = "\x00default"

var (
	crawlRenderJS bool
	crawlSave     string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [url]",
	Short: "Extract and index a web page",
	Long: `Fetches a page, splits its text into overlapping chunks and embeds them.
Use --render-js for pages that build their content in the browser and
--save to keep the index for later ask and chat runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlRenderJS, "render-js", false, "render the page in headless Chrome before extracting")
	crawlCmd.Flags().StringVar(&crawlSave, "save", "", "save the index under this key (config key when no value is given)")
	crawlCmd.Flags().Lookup("save").NoOptDefVal = defaultKeyFlag
	rootCmd.AddCommand(crawlCmd)
}

func saveKey(flag string) string {
	if flag == defaultKeyFlag {
		return ""
	}
	return flag
}

func runCrawl(cmd *cobra.Command, args []string) error {
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

	res, err := sess.Crawl(ctx, args[0], crawlRenderJS)
	if err != nil {
		return err
	}
	printCrawl(cmd.OutOrStdout(), res)

	if crawlSave != "" {
		key := saveKey(crawlSave)
		if err := sess.SaveIndex(ctx, key); err != nil {
			return err
		}
		if key == "" {
			key = cfg.Index.Key
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved index as %q\n", key)
	}
	return nil
}
