package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCountMismatch is returned when a batch yields a different number of
	// vectors than it was given texts.
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrEmptyVector is returned when the service answered with an empty vector.
	ErrEmptyVector = errors.New("empty embedding vector")
)
