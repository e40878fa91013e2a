package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"promptrun/internal/core"
	"promptrun/internal/dispatch"
	"promptrun/internal/store"
)

// Handler holds the HTTP handlers
type Handler struct {
	generator core.Generator
	runs      store.Store
}

// NewHandler creates a new handler around a generator and a run store.
func NewHandler(generator core.Generator, runs store.Store) *Handler {
	return &Handler{
		generator: generator,
		runs:      runs,
	}
}

// GenerateRequest is the POST /v1/generate body. Either Messages or the
// System/User pair must be supplied; Messages wins when both are.
type GenerateRequest struct {
	Model    string         `json:"model"`
	Messages []core.Message `json:"messages,omitempty"`
	System   string         `json:"system,omitempty"`
	User     string         `json:"user,omitempty"`
}

// GenerateResponse is the success body for POST /v1/generate.
type GenerateResponse struct {
	RunID    string `json:"run_id"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// Generate handles POST /v1/generate: one dispatch, one persisted run.
func (h *Handler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"type":    "invalid_request",
				"message": "invalid request body: " + err.Error(),
			},
		})
	}

	conv := core.Conversation(req.Messages)
	if len(conv) == 0 && (req.System != "" || req.User != "") {
		conv = core.Conversation{
			{Role: core.RoleSystem, Content: req.System},
			{Role: core.RoleUser, Content: req.User},
		}
	}

	ctx := c.Request().Context()
	start := time.Now()
	text, err := h.generator.Generate(ctx, conv, req.Model)
	latency := time.Since(start)

	run := &store.Run{
		ID:          uuid.New().String(),
		Model:       req.Model,
		Provider:    string(dispatch.Resolve(req.Model)),
		Fingerprint: store.Fingerprint(req.Model, conv),
		LatencyMS:   latency.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	if err != nil {
		de := core.Coerce(core.ProviderUnknown, err)
		run.Provider = string(de.Provider)
		run.ErrorType = string(de.Type)
		run.ErrorMessage = de.Message
		run.StatusCode = de.StatusCode
		h.saveRun(c, run)
		return handleError(c, de)
	}

	run.Output = text
	h.saveRun(c, run)

	return c.JSON(http.StatusOK, GenerateResponse{
		RunID:    run.ID,
		Model:    req.Model,
		Provider: run.Provider,
		Text:     text,
	})
}

// saveRun persists the run record. Persistence failures are logged but
// never fail the dispatch response.
func (h *Handler) saveRun(c echo.Context, run *store.Run) {
	if h.runs == nil {
		return
	}
	if err := h.runs.Save(c.Request().Context(), run); err != nil {
		slog.Warn("failed to persist run", "run_id", run.ID, "error", err)
	}
}

// ListRuns handles GET /v1/runs
func (h *Handler) ListRuns(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error": map[string]any{
					"type":    "invalid_request",
					"message": "limit must be an integer",
				},
			})
		}
		limit = n
	}

	runs, err := h.runs.List(c.Request().Context(), limit)
	if err != nil {
		return handleError(c, err)
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}

// GetRun handles GET /v1/runs/:id
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.runs.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"type":    "not_found",
				"message": "no run with id: " + c.Param("id"),
			},
		})
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts dispatch errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var de *core.DispatchError
	if errors.As(err, &de) {
		return c.JSON(de.HTTPStatusCode(), de.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
