package mcp

import "github.com/mark3labs/mcp-go/mcp"

var translateToolDef = mcp.NewTool("translate",
	mcp.WithDescription("Translate text into English with the configured provider. "+
		"Successful translations are added to history. With target set, the result is "+
		"pushed as a notifications/qet/translation notification addressed to target."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Text to translate; must be non-blank and within the maxChars setting"),
	),
	mcp.WithString("target",
		mcp.Description("Optional notification target (for example a browser tab id)"),
	),
)

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Return the effective translation settings. The API key is masked."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var settingsUpdateToolDef = mcp.NewTool("settings_update",
	mcp.WithDescription("Replace the stored settings. Omitted fields fall back to defaults."),
	mcp.WithObject("settings",
		mcp.Required(),
		mcp.Description("Settings object: provider (deepl|google|openai), apiKey, autoCopy, showOverlay, maxChars (100-10000), autoCloseDelay (ms, 0-300000)"),
	),
)

var settingsResetToolDef = mcp.NewTool("settings_reset",
	mcp.WithDescription("Restore default settings. The stored API key is removed."),
	mcp.WithDestructiveHintAnnotation(true),
)

var historyGetToolDef = mcp.NewTool("history_get",
	mcp.WithDescription("List past translations, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum records to return (default: all, at most 100 are kept)"),
		mcp.Min(0),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyClearToolDef = mcp.NewTool("history_clear",
	mcp.WithDescription("Delete all translation history."),
	mcp.WithDestructiveHintAnnotation(true),
)

var historyExportToolDef = mcp.NewTool("history_export",
	mcp.WithDescription("Write translation history to a file in ~/.qet/exports (or a configured allowed path)."),
	mcp.WithString("path",
		mcp.Description("Destination file; default is generated in the exports directory"),
	),
	mcp.WithString("format",
		mcp.Description("Output format"),
		mcp.Enum("jsonl", "md", "html"),
	),
	mcp.WithString("provider",
		mcp.Description("Only export records from this provider"),
	),
)
