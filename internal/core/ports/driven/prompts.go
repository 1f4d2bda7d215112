package driven

// Prompt names recognised by the prompt store.
const (
	// PromptAnswer is the grounding template for answer generation. It must
	// contain two %s verbs: context first, then the question.
	PromptAnswer = "answer"
)

// PromptStore loads user-customisable prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name, falling back to
	// the embedded default when no user file exists.
	Load(name string) (string, error)
}
