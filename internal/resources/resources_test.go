package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/farm"
	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeRunner struct{}

func (fakeRunner) Run(context.Context) *diagnostic.Report {
	return &diagnostic.Report{
		Tables: []diagnostic.TableStatus{
			{Table: "cattle", Exists: true, RowCount: 3},
			{Table: "documents", Exists: true, CountFailed: true, Error: "timeout"},
		},
		Buckets: diagnostic.BucketResult{Error: "storage not configured"},
	}
}

func (fakeRunner) Tables() []string { return []string{"cattle", "documents"} }

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func textOf(t *testing.T, contents []mcp.ResourceContents) mcp.TextResourceContents {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] = %T, want TextResourceContents", contents[0])
	}
	return tc
}

func TestStatusResource(t *testing.T) {
	h := NewHandler(fakeRunner{})

	res := h.StatusResource()
	if res.URI != StatusURI || res.MIMEType != "application/json" {
		t.Errorf("resource = %+v", res)
	}

	contents, err := h.HandleStatus(context.Background(), readReq(StatusURI))
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}
	tc := textOf(t, contents)
	if tc.URI != StatusURI {
		t.Errorf("URI = %q", tc.URI)
	}

	var got diagnostic.Report
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("status is not JSON: %v", err)
	}
	if diff := cmp.Diff(fakeRunner{}.Run(context.Background()), &got); diff != "" {
		t.Errorf("decoded report mismatch (-want +got):\n%s", diff)
	}
}

func TestTablesResource(t *testing.T) {
	h := NewHandler(fakeRunner{})

	if h.TablesResource().URI != TablesURI {
		t.Errorf("URI = %q", h.TablesResource().URI)
	}

	contents, err := h.HandleTables(context.Background(), readReq(TablesURI))
	if err != nil {
		t.Fatalf("HandleTables: %v", err)
	}

	var got []farm.Table
	if err := json.Unmarshal([]byte(textOf(t, contents).Text), &got); err != nil {
		t.Fatalf("tables is not JSON: %v", err)
	}
	want := []farm.Table{{Name: "cattle", Label: "Gado"}, {Name: "documents", Label: "Documentos"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorResource(t *testing.T) {
	tc := errorResource("farm://x", "boom")[0].(mcp.TextResourceContents)
	if tc.Text != "Error: boom" || tc.MIMEType != "text/plain" {
		t.Errorf("errorResource = %+v", tc)
	}
}
