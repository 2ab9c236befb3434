package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"page_scrape": {
		def:     scrapeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScrape },
	},
	"page_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"page_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"page_changed": {
		def:     changedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChanged },
	},
	"page_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"page_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"page_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"page_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"page_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"block_transform": {
		def:     transformToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTransform },
	},
	"block_img2img": {
		def:     img2imgToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImg2Img },
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

// NewServer creates a new MCP server with reblock tools registered.
// Tools listed in the config's DisabledTools are excluded from registration.
func NewServer(deps *ops.Deps, log logger.Logger, version string) *server.MCPServer {
	if log == nil {
		log = logger.NewNop()
	}

	s := server.NewMCPServer(
		"reblock",
		version,
		server.WithToolCapabilities(true),
		server.WithToolHandlerMiddleware(withLogger(log)),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	if deps.Config != nil {
		for _, name := range deps.Config.DisabledTools {
			disabled[name] = true
		}
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// withLogger puts a tool-scoped logger in the context and logs each call.
func withLogger(log logger.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			toolLog := log.With(logger.String("tool", req.Params.Name))
			result, err := next(logger.WithContext(ctx, toolLog), req)

			isError := err != nil || (result != nil && result.IsError)
			toolLog.Debug("tool call finished",
				logger.Bool("error", isError),
				logger.Duration("duration", time.Since(start)),
			)
			return result, err
		}
	}
}

// Run starts the MCP server using stdio transport.
func Run(deps *ops.Deps, log logger.Logger, version string) error {
	s := NewServer(deps, log, version)
	return server.ServeStdio(s)
}
