package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	orch *ops.Orchestrator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(orch *ops.Orchestrator) *Handlers {
	return &Handlers{orch: orch}
}

// Request types for each tool

// TranslateRequest represents the arguments for translate.
type TranslateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target,omitempty"`
}

// SettingsUpdateRequest represents the arguments for settings_update.
type SettingsUpdateRequest struct {
	Settings json.RawMessage `json:"settings"`
}

// HistoryGetRequest represents the arguments for history_get.
type HistoryGetRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryExportRequest represents the arguments for history_export.
type HistoryExportRequest struct {
	Path     string `json:"path,omitempty"`
	Format   string `json:"format,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Handler implementations

// HandleTranslate handles the translate tool call.
func (h *Handlers) HandleTranslate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TranslateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var result ops.Result
	if input.Target != "" {
		result = h.orch.TranslateAndNotify(ctx, input.Target, input.Text)
	} else {
		result = h.orch.Translate(ctx, input.Text)
	}
	if !result.Success {
		return errorResult(result.Err()), nil
	}

	return successResult(result)
}

// HandleSettingsGet handles the settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.orch.GetSettings(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(s.Redacted())
}

// HandleSettingsUpdate handles the settings_update tool call.
func (h *Handlers) HandleSettingsUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingsUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Settings) == 0 || string(input.Settings) == "null" {
		return errorResult(errors.NewInvalidRequest("settings is required")), nil
	}

	s, err := h.orch.UpdateSettings(ctx, input.Settings)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(s.Redacted())
}

// HandleSettingsReset handles the settings_reset tool call.
func (h *Handlers) HandleSettingsReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.orch.ResetSettings(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(s.Redacted())
}

// HandleHistoryGet handles the history_get tool call.
func (h *Handlers) HandleHistoryGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must be >= 0")), nil
	}

	records, err := h.orch.GetHistory(ctx, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"items": records,
		"count": len(records),
	})
}

// HandleHistoryClear handles the history_clear tool call.
func (h *Handlers) HandleHistoryClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.orch.ClearHistory(ctx); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"cleared": true})
}

// HandleHistoryExport handles the history_export tool call.
func (h *Handlers) HandleHistoryExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.orch.ExportHistory(ctx, ops.ExportInput{
		Path:     input.Path,
		Format:   input.Format,
		Provider: input.Provider,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if qErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    qErr.Code,
			"message": qErr.PublicMessage(),
			"status":  qErr.Status,
		}
		if qErr.Provider != "" {
			errorObj["provider"] = qErr.Provider
		}
		if qErr.Code != errors.ErrInternal && qErr.Details != nil {
			errorObj["details"] = qErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
