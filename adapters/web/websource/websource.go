package websource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Abraxas-365/siteqa/datasource"
)

const maxBodySize = 10 << 20

var _ datasource.Extractor = (*WebSource)(nil)

// WebSource fetches pages with a plain HTTP GET, without running scripts.
type WebSource struct {
	client *http.Client
	opts   *datasource.ExtractOptions
}

func NewWebSource(opts ...datasource.Option) *WebSource {
	options := datasource.ApplyOptions(opts...)
	return &WebSource{
		opts: options,
		client: &http.Client{
			Timeout: options.Timeout,
		},
	}
}

// NewWebSourceWithClient uses client as is; its timeout wins over the
// options.
func NewWebSourceWithClient(client *http.Client, opts ...datasource.Option) *WebSource {
	return &WebSource{client: client, opts: datasource.ApplyOptions(opts...)}
}

func (w *WebSource) Extract(ctx context.Context, url string) (*datasource.Document, error) {
	body, err := w.fetchURL(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	title, text, err := datasource.ExtractText(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, datasource.NewFetchError("web", "Extract", "failed to parse HTML", err)
	}

	doc := &datasource.Document{
		URL:       url,
		Title:     title,
		Text:      text,
		Mode:      datasource.ModeStatic,
		FetchedAt: time.Now().UTC(),
	}

	if minLen := w.opts.MinStaticLength; minLen > 0 && doc.Len() < minLen {
		return nil, &datasource.DataSourceError{
			Source:  "web",
			Op:      "Extract",
			Code:    datasource.ErrCodeContentTooShort,
			Message: fmt.Sprintf("page has only %d chars of static text; it likely needs JavaScript rendering", doc.Len()),
		}
	}
	return doc, nil
}

func (w *WebSource) fetchURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &datasource.DataSourceError{
			Source:  "web",
			Op:      "fetchURL",
			Err:     err,
			Code:    datasource.ErrCodeInvalidURL,
			Message: "invalid URL",
		}
	}
	req.Header.Set("User-Agent", w.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, datasource.NewFetchError("web", "fetchURL", "failed to fetch URL", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, datasource.NewFetchError("web", "fetchURL", "failed to fetch URL: "+resp.Status, nil)
	}

	return resp.Body, nil
}
