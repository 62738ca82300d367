package crawler

import "context"

// Extractor is one acquisition strategy.
//
// Extract returns an error when the page could not be fetched. A fetched
// page with no text returns an Extraction with empty Page.Text and no error.
type Extractor interface {
	Extract(ctx context.Context, pageURL string, credential string) (*Extraction, error)

	// Name identifies the strategy in logs and reports.
	Name() string
}
