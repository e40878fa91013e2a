// Package core provides core types and interfaces for the dispatch engine.
package core

// ProviderID identifies one backend vendor integration.
type ProviderID string

const (
	ProviderOpenAI    ProviderID = "openai"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGoogle    ProviderID = "google"
	// ProviderUnknown is the sentinel for model names no rule matches.
	ProviderUnknown ProviderID = "unknown"
)

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered exchange. Order is meaningful; it may be empty.
type Conversation []Message

// Turn is a non-system conversation entry after translation.
// Its role is always RoleUser or RoleAssistant.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Prompt is the provider-neutral translated form of a conversation:
// the merged system text (nil when the conversation had no system
// messages) and the remaining turns in their original relative order.
type Prompt struct {
	System *string `json:"system,omitempty"`
	Turns  []Turn  `json:"turns"`
}

// CompletionRequest is the input contract for a backend capability.
type CompletionRequest struct {
	Model       string   `json:"model"`
	System      *string  `json:"system,omitempty"`
	Turns       []Turn   `json:"turns"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// PartType classifies a completion response part.
type PartType string

const (
	PartText     PartType = "text"
	PartToolCall PartType = "tool_call"
)

// Part is one typed piece of a backend completion.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
}

// Completion is the raw result a capability yields before text extraction.
type Completion struct {
	Parts []Part `json:"parts"`
}

// Text concatenates the text-typed parts in returned order with no
// separator. Non-text parts are skipped and never affect ordering.
func (c *Completion) Text() string {
	var out string
	for _, p := range c.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}
