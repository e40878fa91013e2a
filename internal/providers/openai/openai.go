// Package openai provides the OpenAI chat-completions capability.
package openai

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"promptrun/internal/core"
	"promptrun/internal/llmclient"
	"promptrun/internal/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

func init() {
	// Self-register with the capability factory
	providers.Register(core.ProviderOpenAI, func(cfg providers.ProviderConfig) (core.Capability, error) {
		c := New(cfg.APIKey)
		if cfg.BaseURL != "" {
			c.SetBaseURL(cfg.BaseURL)
		}
		c.SetDefaultModel(cfg.DefaultModel)
		return c, nil
	})
}

// Capability implements core.Capability against the OpenAI API.
type Capability struct {
	client       *llmclient.Client
	apiKey       string
	defaultModel string
}

// New creates a new OpenAI capability.
func New(apiKey string) *Capability {
	c := &Capability{apiKey: apiKey}
	c.client = llmclient.New(llmclient.Config{
		Provider: core.ProviderOpenAI,
		BaseURL:  defaultBaseURL,
	}, c.setHeaders)
	return c
}

// NewWithHTTPClient creates a capability with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(apiKey string, httpClient *http.Client) *Capability {
	c := &Capability{apiKey: apiKey}
	c.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		Provider: core.ProviderOpenAI,
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// chatRequest is the JSON body sent to /chat/completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends one chat-completion request and extracts the reply text
// from choices[0].message.content. Extra response fields are ignored.
func (c *Capability) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]chatMessage, 0, len(req.Turns)+1)
	if req.System != nil {
		messages = append(messages, chatMessage{Role: string(core.RoleSystem), Content: *req.System})
	}
	for _, t := range req.Turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Text})
	}

	raw, err := c.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body: chatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return nil, core.NewEmptyResponseError(core.ProviderOpenAI, "choices[0].message.content")
	}
	return &core.Completion{
		Parts: []core.Part{{Type: core.PartText, Text: content.String()}},
	}, nil
}
