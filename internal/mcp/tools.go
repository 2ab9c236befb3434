package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/reblock/internal/ops"
	"github.com/hpungsan/reblock/internal/transform"
)

var scrapeToolDef = mcp.NewTool("page_scrape",
	mcp.WithDescription("Fetch a web page, extract its headings, paragraphs and images as labeled blocks, and store it. Re-scraping a URL keeps its id and resets its edits."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Absolute http(s) URL of the page"),
	),
)

var listToolDef = mcp.NewTool("page_list",
	mcp.WithDescription("List stored pages, most recently scraped or edited first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit",
		mcp.Description("Maximum items to return"),
		mcp.DefaultNumber(ops.DefaultListLimit),
		mcp.Min(1),
		mcp.Max(ops.MaxListLimit),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip"),
		mcp.Min(0),
	),
)

var fetchToolDef = mcp.NewTool("page_fetch",
	mcp.WithDescription("Fetch one stored page with its original and modified blocks."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Page id"),
	),
)

var changedToolDef = mcp.NewTool("page_changed",
	mcp.WithDescription("Show a page's original blocks next to the modified blocks that differ from them."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Page id"),
	),
)

var saveToolDef = mcp.NewTool("page_save",
	mcp.WithDescription("Save block edits keyed by label (head1, para2, img1). Labels not on the page are ignored and reported."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Page id"),
	),
	mcp.WithObject("edits",
		mcp.Required(),
		mcp.Description("Map of block label to new text or image source"),
	),
)

var deleteToolDef = mcp.NewTool("page_delete",
	mcp.WithDescription("Permanently delete one stored page."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Page id"),
	),
)

var clearToolDef = mcp.NewTool("page_clear",
	mcp.WithDescription("Permanently delete every stored page."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithBoolean("confirm",
		mcp.Required(),
		mcp.Description("Must be true"),
	),
)

var exportToolDef = mcp.NewTool("page_export",
	mcp.WithDescription("Write every stored page, original and modified blocks included, to a JSONL file."),
	mcp.WithString("path",
		mcp.Description("Destination .jsonl file directly inside the exports directory or an allowed path. Defaults to a timestamped file in the exports directory."),
	),
)

var importToolDef = mcp.NewTool("page_import",
	mcp.WithDescription("Load pages from a JSONL file written by page_export."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Source .jsonl file"),
	),
	mcp.WithString("mode",
		mcp.Description("Collision handling: error (import nothing), replace or skip"),
		mcp.Enum(string(ops.ImportModeError), string(ops.ImportModeReplace), string(ops.ImportModeSkip)),
		mcp.DefaultString(string(ops.ImportModeError)),
	),
)

var transformToolDef = mcp.NewTool("block_transform",
	mcp.WithDescription("Rewrite one text block with the local text generator. Nothing is stored; save the result with page_save."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Current block text"),
	),
	mcp.WithString("label",
		mcp.Required(),
		mcp.Description("Block label, echoed back"),
	),
	mcp.WithString("action",
		mcp.Required(),
		mcp.Description("Rewrite action: "+strings.Join(transform.Actions, ", ")+". Other values fall back to a generic instruction."),
	),
)

var img2imgToolDef = mcp.NewTool("block_img2img",
	mcp.WithDescription("Re-render one image with the local image generator and return it as a data URI. Nothing is stored."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Source image URL"),
	),
	mcp.WithString("prompt",
		mcp.Description("Instruction for the generator"),
		mcp.DefaultString(transform.DefaultPrompt),
	),
)
