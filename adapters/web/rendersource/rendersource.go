package rendersource

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/siteqa/datasource"
	"github.com/chromedp/chromedp"
)

const (
	DefaultRenderTimeout = 45 * time.Second
	DefaultScrolls       = 3
	DefaultScrollDelay   = 2 * time.Second
)

var _ datasource.Extractor = (*RenderSource)(nil)

type Options struct {
	Timeout     time.Duration
	Scrolls     int
	ScrollDelay time.Duration
	ChromePath  string
	UserAgent   string
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Timeout:     DefaultRenderTimeout,
		Scrolls:     DefaultScrolls,
		ScrollDelay: DefaultScrollDelay,
		UserAgent:   datasource.DefaultUserAgent,
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithScrolls sets how many times the page is scrolled to the bottom to
// trigger lazy loading, and the pause after each scroll.
func WithScrolls(n int, delay time.Duration) Option {
	return func(o *Options) {
		o.Scrolls = n
		o.ScrollDelay = delay
	}
}

// WithChromePath points at a specific Chrome or Chromium binary.
func WithChromePath(path string) Option {
	return func(o *Options) {
		o.ChromePath = path
	}
}

func WithUserAgent(ua string) Option {
	return func(o *Options) {
		o.UserAgent = ua
	}
}

// RenderSource loads pages in headless Chrome so client-side content is
// present before extraction. Every call starts and stops its own browser.
type RenderSource struct {
	opts *Options
}

func New(opts ...Option) *RenderSource {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &RenderSource{opts: options}
}

func (r *RenderSource) allocatorOptions() []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(r.opts.UserAgent),
	)
	if r.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ChromePath))
	}
	return allocOpts
}

func (r *RenderSource) actions(url string, page *string) []chromedp.Action {
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	for i := 0; i < r.opts.Scrolls; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil),
			chromedp.Sleep(r.opts.ScrollDelay),
		)
	}
	return append(actions, chromedp.OuterHTML("html", page, chromedp.ByQuery))
}

func (r *RenderSource) Extract(ctx context.Context, url string) (*datasource.Document, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, r.opts.Timeout)
	defer cancel()

	var page string
	if err := chromedp.Run(runCtx, r.actions(url, &page)...); err != nil {
		return nil, datasource.NewRenderError("chrome", "Extract", "failed to render page", err)
	}

	title, text, err := datasource.ExtractText(strings.NewReader(page))
	if err != nil {
		return nil, datasource.NewRenderError("chrome", "Extract", "failed to parse rendered HTML", err)
	}

	return &datasource.Document{
		URL:       url,
		Title:     title,
		Text:      text,
		Mode:      datasource.ModeRendered,
		FetchedAt: time.Now().UTC(),
	}, nil
}
