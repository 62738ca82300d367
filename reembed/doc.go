// Package reembed migrates stored memories to a new embedding model.
//
// Memories are append-only and a tenant's vectors must share one
// dimensionality, so vectors are never rewritten in place. A Reembedder
// reads every memory of a source store, embeds its text with the new model
// and writes the copy, with the same ID and provenance, into an empty
// destination store. The source is left untouched.
package reembed
