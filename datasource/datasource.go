package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Mode records how a page was fetched.
type Mode string

const (
	ModeStatic   Mode = "static"
	ModeRendered Mode = "rendered"
)

// Document is the readable text of one web page.
type Document struct {
	URL       string
	Title     string
	Text      string
	Mode      Mode
	FetchedAt time.Time
}

// Len returns the text length in characters.
func (d *Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

// Extractor fetches one URL and returns its readable text.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Document, error)
}

// Router picks the static or rendered extractor per request.
type Router struct {
	Static   Extractor
	Rendered Extractor
	opts     *ExtractOptions
}

func NewRouter(static, rendered Extractor, opts ...Option) *Router {
	return &Router{
		Static:   static,
		Rendered: rendered,
		opts:     ApplyOptions(opts...),
	}
}

// Extract validates rawURL, fetches it with the selected extractor and
// rejects pages with too little text.
func (r *Router) Extract(ctx context.Context, rawURL string, renderJS bool) (*Document, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	ex := r.Static
	if renderJS {
		ex = r.Rendered
	}
	if ex == nil {
		if renderJS {
			return nil, NewRenderError("router", "Extract", "JavaScript rendering is not configured", nil)
		}
		return nil, NewFetchError("router", "Extract", "static fetching is not configured", nil)
	}

	doc, err := ex.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if minLen := r.opts.MinTextLength; minLen > 0 && doc.Len() < minLen {
		return nil, &DataSourceError{
			Source:  "router",
			Op:      "Extract",
			Code:    ErrCodeContentTooShort,
			Message: fmt.Sprintf("content too short (%d chars); the page may need JavaScript rendering or block automated access", doc.Len()),
		}
	}
	return doc, nil
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return &DataSourceError{Source: "url", Op: "ValidateURL", Code: ErrCodeInvalidURL, Message: "malformed URL", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &DataSourceError{Source: "url", Op: "ValidateURL", Code: ErrCodeInvalidURL,
			Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &DataSourceError{Source: "url", Op: "ValidateURL", Code: ErrCodeInvalidURL, Message: "URL has no host"}
	}
	return nil
}
