package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hpungsan/qet/internal/config"
	"github.com/hpungsan/qet/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"translate": {
		def:     translateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTranslate },
	},
	"settings_get": {
		def:     settingsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsGet },
	},
	"settings_update": {
		def:     settingsUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsUpdate },
	},
	"settings_reset": {
		def:     settingsResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsReset },
	},
	"history_get": {
		def:     historyGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryGet },
	},
	"history_clear": {
		def:     historyClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryClear },
	},
	"history_export": {
		def:     historyExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryExport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with qet tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(orch *ops.Orchestrator, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"qet",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(orch)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. notifier, when non-nil,
// is attached to the server so pushed translations reach connected clients.
func Run(orch *ops.Orchestrator, cfg *config.Config, version string, notifier *ClientNotifier, logger zerolog.Logger) error {
	s := NewServer(orch, cfg, version)
	if notifier != nil {
		notifier.Attach(s)
	}
	logger.Info().Str("version", version).Int("tools", len(s.ListTools())).Msg("mcp server starting on stdio")
	return server.ServeStdio(s)
}
