// Package embedding turns ordered texts into ordered vectors.
//
// A Pipeline sends texts to an ai.Embedder in sequential batches of a fixed
// size, each under the shared ai.RetryPolicy. Two modes exist:
//
//   - Embed fails closed: any failed batch fails the whole call and no
//     vectors are returned. Ingestion uses this mode.
//   - EmbedPartial is opportunistic: failed batches leave nil holes and the
//     batch errors are joined. Side ingestion and seeding use this mode.
//
// In both modes a vector is never paired with the wrong text. PairVectors is the
// final guard before persistence.
package embedding
