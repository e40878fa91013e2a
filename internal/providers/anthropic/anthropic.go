// Package anthropic provides the Anthropic messages capability.
package anthropic

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"promptrun/internal/core"
	"promptrun/internal/llmclient"
	"promptrun/internal/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"

	// The messages API rejects requests without max_tokens.
	defaultMaxTokens = 4096
)

func init() {
	// Self-register with the capability factory
	providers.Register(core.ProviderAnthropic, func(cfg providers.ProviderConfig) (core.Capability, error) {
		c := New(cfg.APIKey)
		if cfg.BaseURL != "" {
			c.SetBaseURL(cfg.BaseURL)
		}
		c.SetDefaultModel(cfg.DefaultModel)
		return c, nil
	})
}

// Capability implements core.Capability against the Anthropic API.
type Capability struct {
	client       *llmclient.Client
	apiKey       string
	defaultModel string
}

// New creates a new Anthropic capability.
func New(apiKey string) *Capability {
	c := &Capability{apiKey: apiKey}
	c.client = llmclient.New(llmclient.Config{
		Provider: core.ProviderAnthropic,
		BaseURL:  defaultBaseURL,
	}, c.setHeaders)
	return c
}

// NewWithHTTPClient creates a capability with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(apiKey string, httpClient *http.Client) *Capability {
	c := &Capability{apiKey: apiKey}
	c.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		Provider: core.ProviderAnthropic,
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
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
}

// messagesRequest is the JSON body sent to /messages.
type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends one messages request and converts the content block list
// into typed parts: "text" blocks keep their text, every other block type
// (tool_use and friends) becomes a tool-call part that extraction skips.
func (c *Capability) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body := messagesRequest{
		Model:       model,
		Messages:    make([]message, 0, len(req.Turns)),
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != nil {
		body.System = *req.System
	}
	if req.MaxTokens != nil {
		body.MaxTokens = *req.MaxTokens
	}
	for _, t := range req.Turns {
		body.Messages = append(body.Messages, message{Role: string(t.Role), Content: t.Text})
	}

	raw, err := c.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/messages",
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	content := gjson.GetBytes(raw, "content")
	if !content.Exists() || !content.IsArray() {
		return nil, core.NewEmptyResponseError(core.ProviderAnthropic, "content block list")
	}

	blocks := content.Array()
	parts := make([]core.Part, 0, len(blocks))
	for _, block := range blocks {
		if block.Get("type").String() == "text" {
			parts = append(parts, core.Part{Type: core.PartText, Text: block.Get("text").String()})
			continue
		}
		parts = append(parts, core.Part{Type: core.PartToolCall})
	}
	return &core.Completion{Parts: parts}, nil
}
