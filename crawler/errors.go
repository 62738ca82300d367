package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrNoExtractors is returned when a crawler is configured without strategies.
	ErrNoExtractors = errors.New("at least one extractor required")

	// ErrUnsupportedContent is returned when a response is neither HTML nor text.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// StatusError reports a non-2xx response from a fetched URL.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}
