package prompts

import (
	"context"
	"fmt"

	"github.com/HendryAvila/farmcheck/internal/farm"
	"github.com/mark3labs/mcp-go/mcp"
)

// TroubleshootPrompt handles the farm-troubleshoot MCP prompt.
// It focuses the AI on a single table's result.
type TroubleshootPrompt struct{}

// NewTroubleshootPrompt creates a TroubleshootPrompt.
func NewTroubleshootPrompt() *TroubleshootPrompt {
	return &TroubleshootPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *TroubleshootPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("farm-troubleshoot",
		mcp.WithPromptDescription(
			"Investigate one farm table that the diagnostic reports as missing "+
				"or failing to count.",
		),
		mcp.WithArgument("table",
			mcp.ArgumentDescription("Table to investigate, e.g. 'horses'. Default: cattle"),
		),
	)
}

// Handle processes the farm-troubleshoot prompt request.
func (p *TroubleshootPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	table := farm.TableCattle
	if args := req.Params.Arguments; args != nil {
		if name, ok := args["table"]; ok && name != "" {
			table = name
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Troubleshoot table: %s", table),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"The farm table '%s' (%s) may have a problem.\n\n"+
						"Please:\n"+
						"1. Run `farm_db_status` with format='json'\n"+
						"2. Find the entry for '%s' and read its `exists`, `rowCount` and `errorMessage`\n"+
						"3. If `exists` is false, tell me whether the table is missing or access is denied\n"+
						"4. If `rowCount` is \"error\", explain why counting failed while the table exists\n"+
						"5. Suggest the next step I should take, without changing any data",
					table, farm.Label(table), table,
				)),
			},
		},
	}, nil
}
