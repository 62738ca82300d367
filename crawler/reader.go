// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/brandmem/metrics"
	"github.com/sony/gobreaker"
)

const maxBodyBytes = 5 << 20

var (
	mdImagePattern    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkPattern     = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)[^)]*\)`)
	mdHeadingPattern  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	multiNewline      = regexp.MustCompile(`\n{3,}`)
	readerLinkPattern = regexp.MustCompile(`\]\((https?://[^)\s]+)`)
)

// ReaderExtractor asks an external reader service for a readability
// rendering of a page: GET {base}/{url}. The service is guarded by a
// circuit breaker, so once it keeps failing it is skipped until the
// breaker's timeout passes.
type ReaderExtractor struct {
	base    string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ Extractor = (*ReaderExtractor)(nil)

// NewReaderExtractor creates a reader strategy for the service at base.
// token is sent as a bearer credential when no per-crawl credential is given.
func NewReaderExtractor(base, token string, client *http.Client, m *metrics.Metrics) *ReaderExtractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := slog.Default().With("component", "crawler-reader")

	settings := gobreaker.Settings{
		Name:        "reader",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			m.BreakerState(name, to == gobreaker.StateOpen)
		},
	}

	return &ReaderExtractor{
		base:    strings.TrimSuffix(base, "/"),
		token:   token,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Name returns "reader".
func (r *ReaderExtractor) Name() string {
	return "reader"
}

// Extract fetches the rendering of pageURL. Titles and the links summary
// are parsed from the service's plain text envelope when present.
func (r *ReaderExtractor) Extract(ctx context.Context, pageURL string, credential string) (*Extraction, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx, pageURL, credential)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("reader service skipped: %w", err)
		}
		return nil, err
	}
	return out.(*Extraction), nil
}

func (r *ReaderExtractor) fetch(ctx context.Context, pageURL string, credential string) (*Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/"+pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-With-Links-Summary", "true")
	req.Header.Set("X-With-Images-Summary", "true")
	if credential == "" {
		credential = r.token
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: req.URL.String(), Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	ex := parseReaderResponse(pageURL, string(body))
	r.logger.Debug("reader extracted page", "url", pageURL, "chars", len(ex.Page.Text), "links", len(ex.Links))
	return ex, nil
}

// parseReaderResponse splits the reader's envelope:
//
//	Title: ...
//	URL Source: ...
//	Markdown Content:
//	...
//	Links/Buttons:
//	- [About](https://...)
func parseReaderResponse(pageURL, body string) *Extraction {
	body = strings.ReplaceAll(body, "\r\n", "\n")

	var title, source string
	content := body
	if idx := strings.Index(body, "Markdown Content:"); idx >= 0 {
		header := body[:idx]
		content = body[idx+len("Markdown Content:"):]
		for _, line := range strings.Split(header, "\n") {
			line = strings.TrimSpace(line)
			if t, ok := strings.CutPrefix(line, "Title:"); ok {
				title = strings.TrimSpace(t)
			}
			if u, ok := strings.CutPrefix(line, "URL Source:"); ok {
				source = strings.TrimSpace(u)
			}
		}
	}

	linksAt := strings.Index(content, "\nLinks/Buttons:")
	imagesAt := strings.Index(content, "\nImages:")

	var links []string
	if linksAt >= 0 {
		section := content[linksAt:]
		if imagesAt > linksAt {
			section = content[linksAt:imagesAt]
		}
		for _, m := range readerLinkPattern.FindAllStringSubmatch(section, -1) {
			links = append(links, m[1])
		}
	}
	for _, at := range []int{linksAt, imagesAt} {
		if at >= 0 && at < len(content) {
			content = content[:at]
		}
	}

	return &Extraction{
		Page: Page{
			URL:   pageURL,
			Title: title,
			Text:  cleanMarkdown(content),
		},
		Links:    links,
		FinalURL: source,
	}
}

// cleanMarkdown reduces reader markdown to plain blocks separated by blank lines.
func cleanMarkdown(s string) string {
	s = mdImagePattern.ReplaceAllString(s, "")
	s = mdLinkPattern.ReplaceAllString(s, "$1")
	s = mdHeadingPattern.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" || trimmed == "***" || trimmed == "===" {
			line = ""
		}
		kept = append(kept, line)
	}
	s = strings.Join(kept, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
