package core

import "context"

// Capability executes one translated conversation against a single
// backend/model pair and returns the raw completion. Production
// implementations wrap a vendor HTTP API; tests inject doubles.
// Implementations must be safe for concurrent use and must honor
// context cancellation.
type Capability interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, req *CompletionRequest) (*Completion, error)

func (f CapabilityFunc) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	return f(ctx, req)
}

// Generator is the dispatch surface consumed by the HTTP layer.
type Generator interface {
	// Generate runs one full dispatch: resolve, gate, translate,
	// execute, extract. It returns the extracted text or a *DispatchError.
	Generate(ctx context.Context, conv Conversation, model string) (string, error)

	// GeneratePrompt is the single-turn convenience form, treated as a
	// conversation of one system and one user message.
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}
