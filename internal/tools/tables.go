package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/farm"
	"github.com/mark3labs/mcp-go/mcp"
)

// TablesTool handles the farm_tables MCP tool.
// It lists the tables the diagnostic checks, without touching the database.
type TablesTool struct {
	runner diagnostic.Runner
}

// NewTablesTool creates a TablesTool.
func NewTablesTool(runner diagnostic.Runner) *TablesTool {
	return &TablesTool{runner: runner}
}

// Definition returns the MCP tool definition for registration.
func (t *TablesTool) Definition() mcp.Tool {
	return mcp.NewTool("farm_tables",
		mcp.WithDescription(
			"List the farm tables that farm_db_status checks, in check order, "+
				"with their labels. Does not query the database.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the farm_tables tool call.
func (t *TablesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables := farm.Describe(t.runner.Tables())

	var b strings.Builder
	b.WriteString("# Tabelas verificadas\n\n")
	b.WriteString("| # | Tabela | Descrição |\n")
	b.WriteString("|---|--------|-----------|\n")
	for i, tbl := range tables {
		fmt.Fprintf(&b, "| %d | `%s` | %s |\n", i+1, tbl.Name, tbl.Label)
	}

	return mcp.NewToolResultText(b.String()), nil
}
