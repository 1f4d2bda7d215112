// Package chunking splits a document's catalog node spans into chunks
// sized for embedding.
//
// Each node's own span (exclusive of descendants) is consumed with a
// character sliding window: up to the configured maximum per chunk, with
// the trailing overlap re-consumed as the next chunk's prefix. Fenced code
// blocks and table runs are treated as atomic units; one that alone
// exceeds the maximum is emitted whole and flagged oversized. Chunk ids
// are deterministic so re-indexing an unchanged document reproduces them.
package chunking
