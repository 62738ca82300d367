package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readerBody = `Title: Acme Roasters

URL Source: https://acme.test/

Markdown Content:
# Small batch coffee

We roast every Monday in [Portland](https://acme.test/portland).

![logo](https://acme.test/logo.png)

---

Visit our cafe.

Links/Buttons:
- [About](https://acme.test/about)
- [Shop](https://acme.test/shop)

Images:
- ![logo](https://acme.test/logo.png)
`

func TestParseReaderResponse(t *testing.T) {
	ex := parseReaderResponse("https://acme.test/", readerBody)

	assert.Equal(t, "Acme Roasters", ex.Page.Title)
	assert.Equal(t, "Small batch coffee\n\nWe roast every Monday in Portland.\n\nVisit our cafe.", ex.Page.Text)
	assert.Equal(t, []string{"https://acme.test/about", "https://acme.test/shop"}, ex.Links)
	assert.Equal(t, "https://acme.test/", ex.FinalURL)
}

func TestParseReaderResponse_PlainBody(t *testing.T) {
	ex := parseReaderResponse("u", "Just some text.\n\n\n\nMore text.")
	assert.Empty(t, ex.Page.Title)
	assert.Equal(t, "Just some text.\n\nMore text.", ex.Page.Text)
	assert.Empty(t, ex.FinalURL)
}

func TestReaderExtractor_Headers(t *testing.T) {
	var gotPath string
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		headers = r.Header.Clone()
		_, _ = w.Write([]byte(readerBody))
	}))
	defer server.Close()

	reader := NewReaderExtractor(server.URL, "default-token", server.Client(), nil)

	_, err := reader.Extract(context.Background(), "https://acme.test/", "")
	require.NoError(t, err)
	assert.Equal(t, "/https://acme.test/", gotPath)
	assert.Equal(t, "true", headers.Get("X-With-Links-Summary"))
	assert.Equal(t, "true", headers.Get("X-With-Images-Summary"))
	assert.Equal(t, "Bearer default-token", headers.Get("Authorization"))

	_, err = reader.Extract(context.Background(), "https://acme.test/", "per-crawl")
	require.NoError(t, err)
	assert.Equal(t, "Bearer per-crawl", headers.Get("Authorization"))
}

func TestReaderExtractor_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	reader := NewReaderExtractor(server.URL, "", server.Client(), nil)
	for i := 0; i < 5; i++ {
		_, err := reader.Extract(context.Background(), "https://acme.test/", "")
		require.Error(t, err)
	}

	assert.Equal(t, 3, calls, "breaker should stop calling the service after three failures")
}
