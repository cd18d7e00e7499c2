// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the configured backends, builds
// the reporter, and injects it into the tools, prompts and resources.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/HendryAvila/farmcheck/internal/config"
	"github.com/HendryAvila/farmcheck/internal/connect"
	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/logging"
	"github.com/HendryAvila/farmcheck/internal/prompts"
	"github.com/HendryAvila/farmcheck/internal/resources"
	"github.com/HendryAvila/farmcheck/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New opens the backends named by cfg and creates the MCP server with
// all tools, prompts, and resources registered.
//
// The returned cleanup function closes the backend connections and must
// be called on shutdown (typically via defer). It is always non-nil.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*server.MCPServer, func(), error) {
	logger = logging.OrNop(logger)

	b, err := connect.Open(ctx, cfg, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("opening backends: %w", err)
	}
	cleanup := func() {
		if err := b.Close(); err != nil {
			logger.Warn("closing backends", zap.Error(err))
		}
	}

	return NewWithRunner(connect.NewReporter(cfg, b, logger), logger), cleanup, nil
}

// NewWithRunner creates the MCP server over an existing runner.
func NewWithRunner(runner diagnostic.Runner, logger *zap.Logger) *server.MCPServer {
	logger = logging.OrNop(logger)

	s := server.NewMCPServer(
		"farmcheck",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(logToolCalls(logger)),
		server.WithInstructions(serverInstructions()),
	)

	// --- Tools ---

	statusTool := tools.NewDBStatusTool(runner)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	tablesTool := tools.NewTablesTool(runner)
	s.AddTool(tablesTool.Definition(), tablesTool.Handle)

	// --- Prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	troubleshootPrompt := prompts.NewTroubleshootPrompt()
	s.AddPrompt(troubleshootPrompt.Definition(), troubleshootPrompt.Handle)

	// --- Resources ---

	rh := resources.NewHandler(runner)
	s.AddResource(rh.StatusResource(), rh.HandleStatus)
	s.AddResource(rh.TablesResource(), rh.HandleTables)

	return s
}

// Serve runs s over the given stdio streams until ctx is cancelled or
// in is closed.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(zap.NewStdLog(logger.Named("stdio")))
	return stdio.Listen(ctx, in, out)
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// logToolCalls logs every tool call with its duration.
func logToolCalls(logger *zap.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			res, err := next(ctx, req)
			fields := []zap.Field{
				zap.String("tool", req.Params.Name),
				zap.Duration("took", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Error("tool call failed", append(fields, zap.Error(err))...)
			case res != nil && res.IsError:
				logger.Warn("tool returned an error result", fields...)
			default:
				logger.Info("tool call", fields...)
			}
			return res, err
		}
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use farmcheck.
func serverInstructions() string {
	return `You have access to farmcheck, a read-only diagnostic for a farm-management
database (livestock, health records, documents, calendar) and its file storage.

## WHEN TO USE farmcheck

Use farm_db_status when the user:
- Reports that cattle, horses, health records, documents or calendar events are missing
- Asks whether the database or storage is set up correctly
- Has just run a migration and wants to confirm the tables exist

## TOOLS

- farm_db_status: runs the diagnostic. Returns one line per table and the
  storage bucket list. Use format='json' when you need to inspect fields.
- farm_tables: lists the checked tables and their labels. No database access.

## READING THE REPORT

- ✅ **table**: N registros means the table exists and holds N rows.
- ❌ **table**: Não encontrada - <message> means the existence check failed.
  The message is the database's own text: a missing relation, a permission
  error, or an unreachable service.
- ❌ **table**: Erro ao contar registros - <message> means the table exists
  but counting its rows failed.
- A bucket failure never hides the table results.

farmcheck never writes. Do not suggest it can create tables or buckets.`
}
