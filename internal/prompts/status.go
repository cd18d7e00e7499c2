// Package prompts implements MCP prompt handlers for the farm diagnostic.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the farm-status MCP prompt.
// It instructs the AI to run the diagnostic and explain the result.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("farm-status",
		mcp.WithPromptDescription(
			"Check the farm database and storage. "+
				"Runs the diagnostic and explains any missing table, "+
				"count error or storage failure.",
		),
	)
}

// Handle processes the farm-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Farm Database Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `farm_db_status` to check my farm database.\n\n" +
						"Then:\n" +
						"1. Show me the report as returned\n" +
						"2. For every ❌ line, explain the likely cause from the error message " +
						"(missing table, missing permission, unreachable service, timeout)\n" +
						"3. Tell me whether storage buckets could be listed\n" +
						"4. If everything is ✅, say so in one sentence",
				),
			},
		},
	}, nil
}
