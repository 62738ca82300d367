package embedding

import "log/slog"

// Pair is an item joined with its vector.
type Pair[T any] struct {
	Item   T
	Vector []float32
}

// PairVectors joins items with vectors by index. When the lengths differ the
// result is truncated to the shorter one and a warning is logged. Items
// whose vector is nil or empty are skipped.
func PairVectors[T any](items []T, vectors [][]float32) []Pair[T] {
	n := len(items)
	if len(vectors) != n {
		slog.Default().With("component", "embedding").Warn("item and vector counts differ, truncating",
			"items", len(items), "vectors", len(vectors))
		n = min(n, len(vectors))
	}

	pairs := make([]Pair[T], 0, n)
	for i := 0; i < n; i++ {
		if len(vectors[i]) == 0 {
			continue
		}
		pairs = append(pairs, Pair[T]{Item: items[i], Vector: vectors[i]})
	}
	return pairs
}
