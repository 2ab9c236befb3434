package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/reblock/internal/errors"
)

// bindArgs binds a tool call's arguments to T. A wrongly typed argument
// yields an INVALID_REQUEST tool result rather than a handler error.
func bindArgs[T any](req mcp.CallToolRequest) (T, *mcp.CallToolResult) {
	var args T
	if err := req.BindArguments(&args); err != nil {
		return args, errorResult(errors.NewInvalidRequest("invalid arguments: " + err.Error()))
	}
	return args, nil
}
