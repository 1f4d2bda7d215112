package driven

import "context"

// AnswerService produces a grounded natural-language answer from retrieved
// context. This is an optional service - when nil, queries return ranked
// context without an answer text.
//
// Implementations may include:
//   - OpenAI-compatible chat APIs
//   - Ollama (local models)
type AnswerService interface {
	// Generate produces an answer to the query using only the supplied
	// context. Fails with domain.ErrGenerationUnavailable when the backing
	// service is unreachable.
	Generate(ctx context.Context, query, contextText string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test
	// request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
