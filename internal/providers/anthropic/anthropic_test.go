package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptrun/internal/core"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func newTestCapability(t *testing.T, handler http.HandlerFunc) *Capability {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewWithHTTPClient("test-key", srv.Client())
	c.SetBaseURL(srv.URL)
	return c
}

func TestComplete_RequestShape(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotBody map[string]any
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		_ = json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello"}]}`))
	})

	completion, err := c.Complete(context.Background(), &core.CompletionRequest{
		Model:  "claude-3-opus",
		System: strptr("be brief"),
		Turns:  []core.Turn{{Role: core.RoleUser, Text: "Hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Text() != "hello" {
		t.Errorf("text = %q", completion.Text())
	}
	if gotPath != "/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != apiVersion {
		t.Errorf("anthropic-version = %q", gotVersion)
	}

	// System rides the top-level field, never the message list.
	if gotBody["system"] != "be brief" {
		t.Errorf("system = %v", gotBody["system"])
	}
	messages := gotBody["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages = %+v", messages)
	}

	// max_tokens is always present, defaulted when the request omits it.
	if gotBody["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v, want %d", gotBody["max_tokens"], defaultMaxTokens)
	}
}

func TestComplete_ExplicitMaxTokens(t *testing.T) {
	var gotBody map[string]any
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	})

	_, err := c.Complete(context.Background(), &core.CompletionRequest{
		Model:     "claude-3-haiku",
		MaxTokens: intptr(128),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["max_tokens"] != float64(128) {
		t.Errorf("max_tokens = %v, want 128", gotBody["max_tokens"])
	}
}

func TestComplete_NoSystemOmitsField(t *testing.T) {
	var gotBody map[string]any
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	})

	_, err := c.Complete(context.Background(), &core.CompletionRequest{Model: "claude-3-opus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := gotBody["system"]; present {
		t.Error("system should be omitted when absent")
	}
}

func TestComplete_MixedContentBlocks(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[
			{"type":"text","text":"Part 1"},
			{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}},
			{"type":"text","text":" Part 2"}
		]}`))
	})

	completion, err := c.Complete(context.Background(), &core.CompletionRequest{Model: "claude-3-opus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completion.Parts) != 3 {
		t.Fatalf("parts = %+v", completion.Parts)
	}
	if completion.Parts[1].Type != core.PartToolCall {
		t.Errorf("middle part type = %q", completion.Parts[1].Type)
	}
	if completion.Text() != "Part 1 Part 2" {
		t.Errorf("text = %q", completion.Text())
	}
}

func TestComplete_MissingContentList(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"msg_123","model":"claude-3-opus"}`))
	})

	_, err := c.Complete(context.Background(), &core.CompletionRequest{Model: "claude-3-opus"})

	var de *core.DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("expected DispatchError, got %T", err)
	}
	if de.Type != core.ErrorTypeEmptyResponse {
		t.Errorf("type = %q", de.Type)
	}
}

func TestComplete_StatusError(t *testing.T) {
	c := newTestCapability(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens required"}}`))
	})

	_, err := c.Complete(context.Background(), &core.CompletionRequest{Model: "claude-3-opus"})

	var de *core.DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("expected DispatchError, got %T", err)
	}
	if de.Type != core.ErrorTypeProviderStatus || de.StatusCode != 400 {
		t.Errorf("got %+v", de)
	}
	if de.Message != "max_tokens required" {
		t.Errorf("message = %q", de.Message)
	}
}
