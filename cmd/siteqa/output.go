package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Abraxas-365/siteqa/kb"
)

const snippetLength = 120

func printCrawl(w io.Writer, res *kb.CrawlResult) {
	fmt.Fprintf(w, "Indexed %s\n", res.URL)
	fmt.Fprintf(w, "  Title:  %s\n", res.Title)
	fmt.Fprintf(w, "  Mode:   %s\n", res.Mode)
	fmt.Fprintf(w, "  Text:   %d characters in %d chunks\n", res.Chars, res.Chunks)
	fmt.Fprintf(w, "  Model:  %s (%d dimensions)\n", res.Model, res.Dimension)
	fmt.Fprintf(w, "  Took:   %s\n", res.Elapsed.Round(time.Millisecond))
}

func printAnswer(w io.Writer, ans *kb.Answer, sources bool) {
	fmt.Fprintln(w, ans.Text)
	if !sources || len(ans.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for i, r := range ans.Sources {
		fmt.Fprintf(w, "  [%d] (%.2f) %s\n", i+1, r.Score, snippet(r.Chunk.Text))
	}
}

func printInfo(w io.Writer, info kb.Info) {
	if !info.Indexed {
		fmt.Fprintln(w, "No site indexed.")
		return
	}
	fmt.Fprintf(w, "Source:  %s\n", info.Source)
	fmt.Fprintf(w, "Title:   %s\n", info.Title)
	fmt.Fprintf(w, "Chunks:  %d\n", info.Chunks)
	fmt.Fprintf(w, "Model:   %s (%d dimensions)\n", info.Model, info.Dimension)
	fmt.Fprintf(w, "History: %d exchanges\n", info.History)
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
