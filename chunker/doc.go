// Package chunker turns crawled pages into deduplicated text chunks.
//
// Each page's text is split on blank lines into blocks. A block longer than
// 1000 characters is cut again at roughly 800 characters with a recursive
// character splitter that prefers line, sentence and word boundaries.
// Chunks shorter than 40 characters are discarded, exact duplicates within
// one run are dropped (the first occurrence wins), and the run is capped at
// 20 chunks for a shallow crawl or 200 for a deep one, in crawl order.
package chunker
