package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorType classifies a dispatch failure.
type ErrorType string

const (
	// ErrorTypeUnknownModel indicates no prefix rule matched the model name.
	ErrorTypeUnknownModel ErrorType = "unknown_model"
	// ErrorTypeNotConfigured indicates the resolved provider has no configuration.
	ErrorTypeNotConfigured ErrorType = "provider_not_configured"
	// ErrorTypeTransport indicates the request never produced an HTTP response.
	ErrorTypeTransport ErrorType = "transport_error"
	// ErrorTypeProviderStatus indicates a non-success HTTP status from the backend.
	ErrorTypeProviderStatus ErrorType = "provider_status_error"
	// ErrorTypeResponseParse indicates the response body could not be decoded.
	ErrorTypeResponseParse ErrorType = "response_parse_error"
	// ErrorTypeEmptyResponse indicates the text payload path was absent or malformed.
	ErrorTypeEmptyResponse ErrorType = "empty_response_error"
	// ErrorTypeCanceled indicates the caller's context was canceled or timed out.
	ErrorTypeCanceled ErrorType = "canceled"
	// ErrorTypeInternal is the catch-all for anything escaping the pipeline.
	ErrorTypeInternal ErrorType = "internal_error"
)

// DispatchError is the single error shape every failure path converges on.
// Provider is always set (possibly ProviderUnknown); StatusCode is zero
// unless a numeric status was available from the upstream failure.
type DispatchError struct {
	Type       ErrorType  `json:"type"`
	Provider   ProviderID `json:"provider"`
	StatusCode int        `json:"status_code,omitempty"`
	Message    string     `json:"message"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status %d): %s", e.Provider, e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code to surface to HTTP callers.
func (e *DispatchError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeUnknownModel, ErrorTypeNotConfigured:
		return http.StatusBadRequest
	case ErrorTypeCanceled:
		return http.StatusRequestTimeout
	case ErrorTypeProviderStatus:
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case ErrorTypeTransport, ErrorTypeResponseParse, ErrorTypeEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *DispatchError) ToJSON() map[string]any {
	inner := map[string]any{
		"type":     e.Type,
		"provider": e.Provider,
		"message":  e.Message,
	}
	if e.StatusCode != 0 {
		inner["status_code"] = e.StatusCode
	}
	return map[string]any{"error": inner}
}

// NewUnknownModelError reports a model name no resolution rule matched.
func NewUnknownModelError(model string) *DispatchError {
	return &DispatchError{
		Type:     ErrorTypeUnknownModel,
		Provider: ProviderUnknown,
		Message:  "Unknown model: " + model,
	}
}

// NewNotConfiguredError reports a resolved provider absent from the
// configuration set. The available list keeps its insertion order.
func NewNotConfiguredError(provider ProviderID, available []ProviderID) *DispatchError {
	names := make([]string, len(available))
	for i, id := range available {
		names[i] = string(id)
	}
	return &DispatchError{
		Type:     ErrorTypeNotConfigured,
		Provider: provider,
		Message:  fmt.Sprintf("%s is not configured. Available providers: %s", provider, strings.Join(names, ", ")),
	}
}

// NewTransportError wraps a failure to reach the backend. Context
// cancellation and deadline expiry are tagged as canceled instead.
func NewTransportError(provider ProviderID, err error) *DispatchError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &DispatchError{
			Type:     ErrorTypeCanceled,
			Provider: provider,
			Message:  "request canceled: " + err.Error(),
			Err:      err,
		}
	}
	return &DispatchError{
		Type:     ErrorTypeTransport,
		Provider: provider,
		Message:  "failed to reach provider: " + err.Error(),
		Err:      err,
	}
}

// NewResponseParseError wraps a body that could not be decoded.
func NewResponseParseError(provider ProviderID, err error) *DispatchError {
	return &DispatchError{
		Type:     ErrorTypeResponseParse,
		Provider: provider,
		Message:  "failed to parse provider response: " + err.Error(),
		Err:      err,
	}
}

// NewEmptyResponseError reports a response missing its text payload path.
func NewEmptyResponseError(provider ProviderID, what string) *DispatchError {
	return &DispatchError{
		Type:     ErrorTypeEmptyResponse,
		Provider: provider,
		Message:  "provider response missing " + what,
	}
}

// ParseProviderStatus converts a non-success HTTP status plus body into a
// DispatchError. Provider error envelopes ({"error":{"message":...}}) are
// unwrapped when present; otherwise the raw body text is carried through.
func ParseProviderStatus(provider ProviderID, statusCode int, body []byte) *DispatchError {
	message := strings.TrimSpace(string(body))
	if m := gjson.GetBytes(body, "error.message"); m.Exists() && m.String() != "" {
		message = m.String()
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &DispatchError{
		Type:       ErrorTypeProviderStatus,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Coerce guarantees the single error shape at the pipeline boundary.
// A *DispatchError passes through unchanged; any other error keeps its
// message; any non-error value (a recovered panic, for instance) is
// stringified. Provider defaults to the id known at the point of capture.
func Coerce(provider ProviderID, v any) *DispatchError {
	switch x := v.(type) {
	case *DispatchError:
		return x
	case error:
		var de *DispatchError
		if errors.As(x, &de) {
			return de
		}
		return &DispatchError{
			Type:     ErrorTypeInternal,
			Provider: provider,
			Message:  x.Error(),
			Err:      x,
		}
	default:
		return &DispatchError{
			Type:     ErrorTypeInternal,
			Provider: provider,
			Message:  fmt.Sprintf("%v", v),
		}
	}
}
