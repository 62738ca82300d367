package reembed

import "errors"

var (
	// ErrSourceRequired is returned when no source repository is provided.
	ErrSourceRequired = errors.New("source memory repository required")

	// ErrDestinationRequired is returned when no destination repository is provided.
	ErrDestinationRequired = errors.New("destination memory repository required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrDestinationNotEmpty is returned when the destination already holds memories.
	ErrDestinationNotEmpty = errors.New("destination store is not empty")
)
