package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document, node or chunk does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse indicates the document text could not be decoded. Fatal to
	// that document's indexing; reported, not retried.
	ErrParse = errors.New("document parse failed")

	// ErrEmbeddingUnavailable indicates the embedding service is unreachable
	// or misconfigured. Embedding batches are retried with bounded backoff.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the answer service is unreachable
	// or misconfigured. Surfaced immediately, never retried.
	ErrGenerationUnavailable = errors.New("answer service unavailable")
)

// Indexing pipeline stages, used to pinpoint where a failure occurred.
const (
	StageParse   = "parse"
	StageExtract = "extract"
	StageSplit   = "split"
	StageEmbed   = "embed"
	StageStore   = "store"
)

// IndexError wraps a pipeline failure with the document and stage that
// produced it, so callers can pinpoint recovery action.
type IndexError struct {
	DocumentID string
	Stage      string
	Err        error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("index document %s: stage %s: %v", e.DocumentID, e.Stage, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As matching.
func (e *IndexError) Unwrap() error {
	return e.Err
}
