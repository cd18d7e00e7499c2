package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

// fakeRunner returns a canned report and counts runs.
type fakeRunner struct {
	report *diagnostic.Report
	tables []string
	runs   int
}

func (f *fakeRunner) Run(context.Context) *diagnostic.Report {
	f.runs++
	return f.report
}

func (f *fakeRunner) Tables() []string { return f.tables }

func sampleRunner() *fakeRunner {
	return &fakeRunner{
		report: &diagnostic.Report{
			Tables: []diagnostic.TableStatus{
				{Table: "cattle", Exists: true, RowCount: 3},
				{Table: "horses", Error: `relation "public.horses" does not exist`},
			},
			Buckets: diagnostic.BucketResult{Names: []string{"documents"}},
		},
		tables: []string{"cattle", "horses"},
	}
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- DBStatusTool ---

func TestDBStatusTool_Definition(t *testing.T) {
	def := NewDBStatusTool(sampleRunner()).Definition()

	if def.Name != "farm_db_status" {
		t.Errorf("name = %q, want farm_db_status", def.Name)
	}
	if _, ok := def.InputSchema.Properties["format"]; !ok {
		t.Error("definition should declare a format argument")
	}
	if def.Annotations.ReadOnlyHint == nil || !*def.Annotations.ReadOnlyHint {
		t.Error("tool should be marked read-only")
	}
}

func TestDBStatusTool_Handle_Markdown(t *testing.T) {
	runner := sampleRunner()
	tool := NewDBStatusTool(runner)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	for _, want := range []string{
		"## Tabelas",
		"✅ **cattle**: 3 registros",
		`❌ **horses**: Não encontrada - relation "public.horses" does not exist`,
		"## Buckets de Storage",
		"✅ documents",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q:\n%s", want, text)
		}
	}
	if runner.runs != 1 {
		t.Errorf("runs = %d, want 1", runner.runs)
	}
}

func TestDBStatusTool_Handle_JSON(t *testing.T) {
	tool := NewDBStatusTool(sampleRunner())

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"format": "json"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var decoded diagnostic.Report
	if err := json.Unmarshal([]byte(getResultText(result)), &decoded); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(decoded.Tables) != 2 || decoded.Tables[1].Exists {
		t.Errorf("decoded tables = %+v", decoded.Tables)
	}
	if result.StructuredContent == nil {
		t.Error("json result should carry structured content")
	}
}

func TestDBStatusTool_Handle_UnknownFormat(t *testing.T) {
	runner := sampleRunner()
	tool := NewDBStatusTool(runner)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"format": "xml"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected a tool error for an unknown format")
	}
	if runner.runs != 0 {
		t.Error("an invalid format should not run the diagnostic")
	}
}

// --- TablesTool ---

func TestTablesTool_Handle(t *testing.T) {
	tool := NewTablesTool(sampleRunner())

	if tool.Definition().Name != "farm_tables" {
		t.Errorf("name = %q, want farm_tables", tool.Definition().Name)
	}

	result, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "| 1 | `cattle` | Gado |") {
		t.Errorf("first row missing:\n%s", text)
	}
	if !strings.Contains(text, "| 2 | `horses` | Cavalos |") {
		t.Errorf("second row missing:\n%s", text)
	}
}
