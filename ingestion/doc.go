// Package ingestion turns a tenant's website into stored memories.
//
// Pipeline.Ingest runs the bulk path: credit check, crawl, chunk, embed and
// one atomic store write, then the scan credit is consumed. Embedding is
// fail-closed on this path, so a run either stores every chunk or none.
//
// Pipeline.IngestPages is the opportunistic path used for text that was
// fetched for another purpose, such as tone analysis or local seeding. It
// stores whatever embedded successfully and skips the rest.
//
// BatchRunner runs many independent ingestions on a bounded worker pool.
package ingestion
