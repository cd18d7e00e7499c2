package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/report"
	"github.com/mark3labs/mcp-go/mcp"
)

// DBStatusTool handles the farm_db_status MCP tool.
// It runs the diagnostic and returns the rendered report.
type DBStatusTool struct {
	runner diagnostic.Runner
}

// NewDBStatusTool creates a DBStatusTool over the given runner.
func NewDBStatusTool(runner diagnostic.Runner) *DBStatusTool {
	return &DBStatusTool{runner: runner}
}

// Definition returns the MCP tool definition for registration.
func (t *DBStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("farm_db_status",
		mcp.WithDescription(
			"Check the farm database: whether each farm table (cattle, horses, "+
				"health records, documents, calendar events) exists and how many "+
				"rows it holds, and which storage buckets are present. "+
				"Failures are reported per table; the call itself does not fail.",
		),
		mcp.WithTitleAnnotation("Farm database status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default) or 'json'."),
			mcp.Enum(report.Formats()...),
			mcp.DefaultString(report.FormatMarkdown),
		),
	)
}

// Handle processes the farm_db_status tool call.
func (t *DBStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", report.FormatMarkdown)
	if format != report.FormatMarkdown && format != report.FormatJSON {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown format %q. Use 'markdown' or 'json'.", format)), nil
	}

	r := t.runner.Run(ctx)

	out, err := report.Render(r, format)
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	if format == report.FormatJSON {
		return mcp.NewToolResultStructured(r, string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
