package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps *ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for each tool

// ScrapeRequest represents the arguments for page_scrape.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// ListRequest represents the arguments for page_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// IDRequest represents the arguments of the single-page tools.
type IDRequest struct {
	ID string `json:"id"`
}

// SaveRequest represents the arguments for page_save.
type SaveRequest struct {
	ID    string            `json:"id"`
	Edits map[string]string `json:"edits"`
}

// ClearRequest represents the arguments for page_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// ExportRequest represents the arguments for page_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for page_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// TransformRequest represents the arguments for block_transform.
type TransformRequest struct {
	Text   string `json:"text"`
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Img2ImgRequest represents the arguments for block_img2img.
type Img2ImgRequest struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
}

// Handler implementations

// HandleScrape handles the page_scrape tool call.
func (h *Handlers) HandleScrape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[ScrapeRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Scrape(ctx, h.deps, ops.ScrapeInput{URL: input.URL})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the page_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[ListRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.List(ctx, h.deps, ops.ListInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the page_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[IDRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Fetch(ctx, h.deps, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleChanged handles the page_changed tool call.
func (h *Handlers) HandleChanged(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[IDRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Changed(ctx, h.deps, ops.ChangedInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSave handles the page_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[SaveRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Save(ctx, h.deps, ops.SaveInput{
		ID:    input.ID,
		Edits: input.Edits,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the page_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[IDRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Delete(ctx, h.deps, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the page_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[ClearRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Clear(ctx, h.deps, ops.ClearInput{Confirm: input.Confirm})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the page_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[ExportRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Export(ctx, h.deps, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the page_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[ImportRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Import(ctx, h.deps, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTransform handles the block_transform tool call.
func (h *Handlers) HandleTransform(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[TransformRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Transform(ctx, h.deps, ops.TransformInput{
		Text:   input.Text,
		Label:  input.Label,
		Action: input.Action,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImg2Img handles the block_img2img tool call.
func (h *Handlers) HandleImg2Img(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, bad := bindArgs[Img2ImgRequest](req)
	if bad != nil {
		return bad, nil
	}

	result, err := ops.Img2Img(ctx, h.deps, ops.Img2ImgInput{
		URL:    input.URL,
		Prompt: input.Prompt,
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

	var rErr *errors.ReblockError
	if stderrors.As(err, &rErr) {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": rErr.Message,
			"status":  rErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// file paths or SQL errors
		if rErr.Code != errors.ErrInternal && rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
