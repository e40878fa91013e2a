package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptrun/internal/core"
	"promptrun/internal/store"
)

// fakeGenerator implements core.Generator with canned behavior.
type fakeGenerator struct {
	text     string
	err      error
	gotConv  core.Conversation
	gotModel string
}

func (f *fakeGenerator) Generate(_ context.Context, conv core.Conversation, model string) (string, error) {
	f.gotConv = conv
	f.gotModel = model
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) GeneratePrompt(ctx context.Context, system, user, model string) (string, error) {
	return f.Generate(ctx, core.Conversation{
		{Role: core.RoleSystem, Content: system},
		{Role: core.RoleUser, Content: user},
	}, model)
}

func doRequest(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{text: "hello there"}
	runs := store.NewMemory()
	srv := New(gen, runs, nil)

	rec := doRequest(t, srv, http.MethodPost, "/v1/generate",
		`{"model":"gpt-4","messages":[{"role":"user","content":"Hi"}]}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "gpt-4", resp.Model)
	assert.Equal(t, "openai", resp.Provider)
	assert.NotEmpty(t, resp.RunID)

	assert.Equal(t, "gpt-4", gen.gotModel)
	require.Len(t, gen.gotConv, 1)
	assert.Equal(t, core.RoleUser, gen.gotConv[0].Role)

	// The run was persisted with the output.
	saved, err := runs.Get(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "hello there", saved.Output)
	assert.Empty(t, saved.ErrorType)
	assert.NotEmpty(t, saved.Fingerprint)
}

func TestGenerate_SystemUserPairFallback(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	srv := New(gen, store.NewMemory(), nil)

	rec := doRequest(t, srv, http.MethodPost, "/v1/generate",
		`{"model":"claude-3-opus","system":"be brief","user":"Hi"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gen.gotConv, 2)
	assert.Equal(t, core.RoleSystem, gen.gotConv[0].Role)
	assert.Equal(t, "be brief", gen.gotConv[0].Content)
	assert.Equal(t, core.RoleUser, gen.gotConv[1].Role)
}

func TestGenerate_MessagesWinOverPair(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	srv := New(gen, store.NewMemory(), nil)

	rec := doRequest(t, srv, http.MethodPost, "/v1/generate",
		`{"model":"gpt-4","messages":[{"role":"user","content":"from messages"}],"system":"ignored","user":"ignored"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gen.gotConv, 1)
	assert.Equal(t, "from messages", gen.gotConv[0].Content)
}

func TestGenerate_DispatchErrorShape(t *testing.T) {
	gen := &fakeGenerator{err: core.NewUnknownModelError("llama-2")}
	runs := store.NewMemory()
	srv := New(gen, runs, nil)

	rec := doRequest(t, srv, http.MethodPost, "/v1/generate",
		`{"model":"llama-2","messages":[{"role":"user","content":"Hi"}]}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown_model", resp["error"]["type"])
	assert.Contains(t, resp["error"]["message"], "Unknown model")

	// Failures persist too, with the error fields filled.
	list, err := runs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "unknown_model", list[0].ErrorType)
	assert.Empty(t, list[0].Output)
}

func TestGenerate_ProviderStatusPassesThrough(t *testing.T) {
	gen := &fakeGenerator{err: core.ParseProviderStatus(core.ProviderOpenAI, 429, []byte(`{"error":{"message":"rate limited"}}`))}
	srv := New(gen, store.NewMemory(), nil)

	rec := doRequest(t, srv, http.MethodPost, "/v1/generate",
		`{"model":"gpt-4","messages":[{"role":"user","content":"Hi"}]}`, nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "provider_status_error", resp["error"]["type"])
	assert.Equal(t, float64(429), resp["error"]["status_code"])
}

func TestGenerate_InvalidBody(t *testing.T) {
	srv := New(&fakeGenerator{}, store.NewMemory(), nil)
	rec := doRequest(t, srv, http.MethodPost, "/v1/generate", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	runs := store.NewMemory()
	srv := New(&fakeGenerator{text: "x"}, runs, nil)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/v1/generate",
			`{"model":"gpt-4","messages":[{"role":"user","content":"Hi"}]}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/v1/runs?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runs []*store.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Runs, 2)
}

func TestListRuns_BadLimit(t *testing.T) {
	srv := New(&fakeGenerator{}, store.NewMemory(), nil)
	rec := doRequest(t, srv, http.MethodGet, "/v1/runs?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun_NotFound(t *testing.T) {
	srv := New(&fakeGenerator{}, store.NewMemory(), nil)
	rec := doRequest(t, srv, http.MethodGet, "/v1/runs/missing-id", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := New(&fakeGenerator{}, store.NewMemory(), nil)
	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
