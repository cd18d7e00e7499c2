// Package resources implements MCP resource handlers for the farm
// diagnostic.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (farm://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/farm"
	"github.com/HendryAvila/farmcheck/internal/report"
	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	StatusURI = "farm://diagnostics/status"
	TablesURI = "farm://diagnostics/tables"
)

// Handler manages the diagnostic resource endpoints.
type Handler struct {
	runner diagnostic.Runner
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(runner diagnostic.Runner) *Handler {
	return &Handler{runner: runner}
}

// StatusResource returns the MCP resource definition for the live report.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Farm Database Status",
		mcp.WithResourceDescription("Live diagnostic of the farm tables and storage buckets, as JSON"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus runs the diagnostic and returns the report as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := report.JSON(h.runner.Run(ctx))
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, data), nil
}

// TablesResource returns the MCP resource definition for the table list.
func (h *Handler) TablesResource() mcp.Resource {
	return mcp.NewResource(
		TablesURI,
		"Farm Tables",
		mcp.WithResourceDescription("Tables checked by the diagnostic, in check order, with labels"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleTables returns the configured tables. It does not query the
// database.
func (h *Handler) HandleTables(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := marshalIndent(farm.Describe(h.runner.Tables()))
	if err != nil {
		return nil, fmt.Errorf("marshaling tables: %w", err)
	}
	return jsonResource(req.Params.URI, data), nil
}
