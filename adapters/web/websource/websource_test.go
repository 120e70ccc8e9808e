package websource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/siteqa/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageWith(paragraphs ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Test Page</title></head><body><main>")
	for _, p := range paragraphs {
		fmt.Fprintf(&sb, "<p>%s</p>", p)
	}
	sb.WriteString("</main><footer>ignored</footer></body></html>")
	return sb.String()
}

func TestWebSource_Extract(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageWith("The sky is blue.", "Grass is green."))
	}))
	defer srv.Close()

	ws := NewWebSource(datasource.WithMinStaticLength(0))
	doc, err := ws.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test Page", doc.Title)
	assert.Equal(t, "The sky is blue.\n\nGrass is green.", doc.Text)
	assert.Equal(t, datasource.ModeStatic, doc.Mode)
	assert.Equal(t, srv.URL, doc.URL)
	assert.False(t, doc.FetchedAt.IsZero())
	assert.Equal(t, datasource.DefaultUserAgent, ua)
}

func TestWebSource_StaticTextTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageWith("Loading..."))
	}))
	defer srv.Close()

	_, err := NewWebSource().Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, datasource.IsCode(err, datasource.ErrCodeContentTooShort))
	assert.Contains(t, err.Error(), "JavaScript")
}

func TestWebSource_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewWebSource().Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, datasource.IsCode(err, datasource.ErrCodeFetch))
	assert.Contains(t, err.Error(), "404")
}

func TestWebSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewWebSource().Extract(context.Background(), url)
	assert.True(t, datasource.IsCode(err, datasource.ErrCodeFetch))
}

func TestWebSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ws := NewWebSource(datasource.WithTimeout(50 * time.Millisecond))
	_, err := ws.Extract(context.Background(), srv.URL)
	assert.True(t, datasource.IsFetchError(err))
}

func TestWebSource_ThroughRouter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageWith(strings.Repeat("Plenty of words here. ", 30)))
	}))
	defer srv.Close()

	router := datasource.NewRouter(NewWebSource(), nil)
	doc, err := router.Extract(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Greater(t, doc.Len(), datasource.DefaultMinStaticLength)
}
