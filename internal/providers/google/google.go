// Package google provides the Gemini generateContent capability.
package google

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"promptrun/internal/core"
	"promptrun/internal/llmclient"
	"promptrun/internal/providers"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

func init() {
	// Self-register with the capability factory
	providers.Register(core.ProviderGoogle, func(cfg providers.ProviderConfig) (core.Capability, error) {
		c := New(cfg.APIKey)
		if cfg.BaseURL != "" {
			c.SetBaseURL(cfg.BaseURL)
		}
		c.SetDefaultModel(cfg.DefaultModel)
		return c, nil
	})
}

// Capability implements core.Capability against the native Gemini API.
type Capability struct {
	client       *llmclient.Client
	apiKey       string
	defaultModel string
}

// New creates a new Gemini capability.
func New(apiKey string) *Capability {
	c := &Capability{apiKey: apiKey}
	c.client = llmclient.New(llmclient.Config{
		Provider: core.ProviderGoogle,
		BaseURL:  defaultBaseURL,
	}, c.setHeaders)
	return c
}

// NewWithHTTPClient creates a capability with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(apiKey string, httpClient *http.Client) *Capability {
	c := &Capability{apiKey: apiKey}
	c.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		Provider: core.ProviderGoogle,
		BaseURL:  defaultBaseURL,
	}, c.setHeaders)
	return c
}

// SetBaseURL allows configuring a custom base URL for the capability.
func (c *Capability) SetBaseURL(url string) {
	c.client.SetBaseURL(url)
}

// SetDefaultModel sets the model used when a request leaves Model empty.
func (c *Capability) SetDefaultModel(model string) {
	c.defaultModel = model
}

func (c *Capability) setHeaders(req *http.Request) {
	// The header form avoids leaking the key into access logs the way
	// the ?key= query parameter does.
	req.Header.Set("x-goog-api-key", c.apiKey)
}

// generateRequest is the JSON body sent to models/<model>:generateContent.
type generateRequest struct {
	SystemInstruction *contentBlock  `json:"systemInstruction,omitempty"`
	Contents          []contentBlock `json:"contents"`
}

type contentBlock struct {
	Role  string     `json:"role,omitempty"`
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

// geminiRole maps a translated turn role onto the Gemini role vocabulary,
// where the assistant side is called "model".
func geminiRole(role core.Role) string {
	if role == core.RoleAssistant {
		return "model"
	}
	return "user"
}

// Complete sends one generateContent request and converts the first
// candidate's parts into typed parts: entries carrying a text field keep
// their text, anything else (functionCall and friends) becomes a
// tool-call part that extraction skips.
func (c *Capability) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body := generateRequest{
		Contents: make([]contentBlock, 0, len(req.Turns)),
	}
	if req.System != nil {
		body.SystemInstruction = &contentBlock{Parts: []textPart{{Text: *req.System}}}
	}
	for _, t := range req.Turns {
		body.Contents = append(body.Contents, contentBlock{
			Role:  geminiRole(t.Role),
			Parts: []textPart{{Text: t.Text}},
		})
	}

	raw, err := c.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/models/" + model + ":generateContent",
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	candidateParts := gjson.GetBytes(raw, "candidates.0.content.parts")
	if !candidateParts.Exists() || !candidateParts.IsArray() {
		return nil, core.NewEmptyResponseError(core.ProviderGoogle, "candidates[0].content.parts")
	}

	elems := candidateParts.Array()
	parts := make([]core.Part, 0, len(elems))
	for _, elem := range elems {
		if text := elem.Get("text"); text.Exists() {
			parts = append(parts, core.Part{Type: core.PartText, Text: text.String()})
			continue
		}
		parts = append(parts, core.Part{Type: core.PartToolCall})
	}
	return &core.Completion{Parts: parts}, nil
}
