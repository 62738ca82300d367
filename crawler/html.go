package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultUserAgent identifies direct fetches.
const DefaultUserAgent = "brandmem/1.0 (+https://github.com/poiesic/brandmem; brand content indexer)"

const (
	noiseSelector    = "script, style, nav, footer, aside, iframe, svg, noscript"
	semanticSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote"
	genericSelector  = "div, section, article, span, td"
	blockChildren    = "div, section, article, p, ul, ol, table, h1, h2, h3, h4, h5, h6, blockquote"

	minSemanticBlocks = 3
	minGenericChars   = 40
	minGenericWords   = 6
	windowSize        = 800
)

// HTMLExtractor fetches a page directly and extracts visible text from its DOM.
type HTMLExtractor struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates a direct-fetch strategy.
func NewHTMLExtractor(client *http.Client, userAgent string) *HTMLExtractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTMLExtractor{
		client:    client,
		userAgent: userAgent,
		logger:    slog.Default().With("component", "crawler-html"),
	}
}

// Name returns "html".
func (h *HTMLExtractor) Name() string {
	return "html"
}

// Extract fetches pageURL and parses it. Plain text responses are used as is.
func (h *HTMLExtractor) Extract(ctx context.Context, pageURL string, _ string) (*Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "" || strings.Contains(mediaType, "html"):
		ex, err := ExtractHTML(pageURL, body)
		if err != nil {
			return nil, err
		}
		ex.FinalURL = resp.Request.URL.String()
		h.logger.Debug("extracted page", "url", pageURL, "final", ex.FinalURL, "chars", len(ex.Page.Text), "links", len(ex.Links))
		return ex, nil
	case strings.HasPrefix(mediaType, "text/"):
		return &Extraction{
			Page:     Page{URL: pageURL, Text: strings.TrimSpace(string(body))},
			FinalURL: resp.Request.URL.String(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
	}
}

// ExtractHTML derives the title, text blocks and anchor hrefs of an HTML document.
//
// Text comes from semantic elements first. With fewer than three semantic
// blocks, leaf-level generic containers holding at least 40 characters and
// six words are added. If that still yields nothing, the body text is cut
// into 800 character windows.
func ExtractHTML(pageURL string, body []byte) (*Extraction, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})

	title := pageTitle(doc)
	doc.Find(noiseSelector).Remove()

	blocks := newBlockSet()
	doc.Find(semanticSelector).Each(func(_ int, s *goquery.Selection) {
		blocks.add(normalizeSpace(s.Text()))
	})

	if blocks.len() < minSemanticBlocks {
		doc.Find(genericSelector).Each(func(_ int, s *goquery.Selection) {
			if s.Children().Filter(blockChildren).Length() > 0 {
				return
			}
			text := normalizeSpace(s.Text())
			if utf8.RuneCountInString(text) >= minGenericChars && len(strings.Fields(text)) >= minGenericWords {
				blocks.add(text)
			}
		})
	}

	text := strings.Join(blocks.items, "\n\n")
	if text == "" {
		text = strings.Join(windows(normalizeSpace(doc.Find("body").Text()), windowSize), "\n\n")
	}

	return &Extraction{
		Page:  Page{URL: pageURL, Title: title, Text: text},
		Links: links,
	}, nil
}

func pageTitle(doc *goquery.Document) string {
	if t := normalizeSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := normalizeSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	return normalizeSpace(doc.Find("h1").First().Text())
}

// blockSet keeps blocks in document order without repeats, which nested
// semantic elements (an li holding a p) would otherwise produce.
type blockSet struct {
	items []string
	seen  map[string]struct{}
}

func newBlockSet() *blockSet {
	return &blockSet{seen: make(map[string]struct{})}
}

func (b *blockSet) add(text string) {
	if text == "" {
		return
	}
	if _, ok := b.seen[text]; ok {
		return
	}
	b.seen[text] = struct{}{}
	b.items = append(b.items, text)
}

func (b *blockSet) len() int {
	return len(b.items)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// windows cuts s into pieces of at most size runes, preferring to end on a space.
func windows(s string, size int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		if len(runes) <= size {
			out = append(out, strings.TrimSpace(string(runes)))
			break
		}
		cut := size
		for i := size; i > size/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	return out
}
