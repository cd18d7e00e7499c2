// Package tools implements the MCP tool handlers for the farm diagnostic.
//
// Each file holds one tool: a struct carrying its dependencies, a
// Definition for registration, and a Handle compatible with mcp-go's
// CallToolRequest signature.
package tools
