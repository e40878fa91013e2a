// Package llmclient provides the shared HTTP client used by all backend
// capabilities. It performs exactly one request attempt per call, decodes
// gzip and brotli response bodies, and funnels every failure into the
// core.DispatchError shape. Retry policy is deliberately absent: it
// belongs to callers layered above the dispatch core.
package llmclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"promptrun/internal/core"
)

const defaultTimeout = 600 * time.Second

// Config holds configuration for a provider client.
type Config struct {
	// Provider identifies the backend for error attribution.
	Provider core.ProviderID

	// BaseURL is the API base URL.
	BaseURL string

	// Timeout bounds one request attempt. Zero means the default (10m,
	// matching vendor SDK defaults).
	Timeout time.Duration
}

// HeaderSetter applies provider-specific auth headers to a request.
type HeaderSetter func(req *http.Request)

// Client is a single-attempt JSON client for one backend.
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a client with a tuned transport. Connection pooling
// settings follow what LLM APIs tolerate well: generous idle pools and
// long response header timeouts for slow generations.
func New(config Config, headerSetter HeaderSetter) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &Client{
		httpClient:   &http.Client{Transport: transport, Timeout: timeout},
		config:       config,
		headerSetter: headerSetter,
	}
}

// NewWithHTTPClient creates a client around a caller-supplied *http.Client.
// Used by tests to point the capability at an httptest server.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// SetBaseURL updates the base URL.
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents one HTTP call to the backend.
type Request struct {
	Method   string
	Endpoint string
	Body     any // JSON-marshaled when not nil
	Headers  map[string]string
}

// Do executes the request once and returns the raw response body on a
// 2xx status. Non-success statuses, transport failures, and cancellation
// all come back as *core.DispatchError. The response body is closed on
// every exit path.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError(c.config.Provider, err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	body, err := c.readBody(resp)
	if err != nil {
		return nil, core.NewTransportError(c.config.Provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.ParseProviderStatus(c.config.Provider, resp.StatusCode, body)
	}
	return body, nil
}

// buildRequest assembles the outgoing HTTP request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &core.DispatchError{
				Type:     core.ErrorTypeInternal,
				Provider: c.config.Provider,
				Message:  "failed to marshal request: " + err.Error(),
				Err:      err,
			}
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.config.BaseURL+req.Endpoint, bodyReader)
	if err != nil {
		return nil, &core.DispatchError{
			Type:     core.ErrorTypeInternal,
			Provider: c.config.Provider,
			Message:  "failed to create request: " + err.Error(),
			Err:      err,
		}
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	// Opting into compression manually disables the transport's
	// transparent gzip, so readBody handles both encodings.
	httpReq.Header.Set("Accept-Encoding", "gzip, br")

	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	return httpReq, nil
}

// readBody drains the response, decompressing gzip and brotli encodings.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = gz.Close() //nolint:errcheck
		}()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(reader)
}
