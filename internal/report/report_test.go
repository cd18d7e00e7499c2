package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/google/go-cmp/cmp"
)

func mixedReport() *diagnostic.Report {
	return &diagnostic.Report{
		Tables: []diagnostic.TableStatus{
			{Table: "cattle", Exists: true, RowCount: 3},
			{Table: "horses", Error: `relation "public.horses" does not exist`},
			{Table: "documents", Exists: true, CountFailed: true, Error: "statement timeout"},
		},
		Buckets: diagnostic.BucketResult{Names: []string{"avatars", "documents"}},
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(mixedReport())

	want := "# Diagnóstico do Banco de Dados\n" +
		"\n" +
		"## Tabelas\n" +
		"\n" +
		"✅ **cattle**: 3 registros\n" +
		"❌ **horses**: Não encontrada - relation \"public.horses\" does not exist\n" +
		"❌ **documents**: Erro ao contar registros - statement timeout\n" +
		"\n" +
		"## Buckets de Storage\n" +
		"\n" +
		"✅ avatars, documents\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdown_CattleThenMissingHorses(t *testing.T) {
	r := &diagnostic.Report{
		Tables: []diagnostic.TableStatus{
			{Table: "cattle", Exists: true, RowCount: 3},
			{Table: "horses", Error: "permission denied for table horses"},
		},
	}

	lines := strings.Split(Markdown(r), "\n")

	var tableLines []string
	for _, l := range lines {
		if strings.Contains(l, "**") {
			tableLines = append(tableLines, l)
		}
	}
	want := []string{
		"✅ **cattle**: 3 registros",
		"❌ **horses**: Não encontrada - permission denied for table horses",
	}
	if diff := cmp.Diff(want, tableLines); diff != "" {
		t.Errorf("table lines mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdown_ZeroRows(t *testing.T) {
	r := &diagnostic.Report{
		Tables: []diagnostic.TableStatus{{Table: "calendar_events", Exists: true}},
	}

	if !strings.Contains(Markdown(r), "✅ **calendar_events**: 0 registros\n") {
		t.Errorf("zero-row table should render as 0 registros:\n%s", Markdown(r))
	}
}

func TestMarkdown_Buckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets diagnostic.BucketResult
		want    string
	}{
		{"listed", diagnostic.BucketResult{Names: []string{"avatars"}}, "✅ avatars\n"},
		{"empty", diagnostic.BucketResult{Names: []string{}}, "✅ Nenhum bucket encontrado\n"},
		{"nil names", diagnostic.BucketResult{}, "✅ Nenhum bucket encontrado\n"},
		{"failed", diagnostic.BucketResult{Error: "Invalid JWT"}, "❌ Erro ao listar buckets - Invalid JWT\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Markdown(&diagnostic.Report{Buckets: tt.buckets})
			if !strings.HasSuffix(got, "## Buckets de Storage\n\n"+tt.want) {
				t.Errorf("bucket section = %q, want suffix %q", got, tt.want)
			}
		})
	}
}

func TestMarkdown_MultiLineErrorsStayOnOneLine(t *testing.T) {
	gateway := "<html>\r\n<head><title>502 Bad Gateway</title></head>\n" +
		"<body>\n<center><h1>502 Bad Gateway</h1></center>\n</body>\n</html>\n"
	r := &diagnostic.Report{
		Tables: []diagnostic.TableStatus{
			{Table: "cattle", Error: gateway},
			{Table: "horses", Exists: true, CountFailed: true, Error: "timeout\n\nretry later"},
		},
		Buckets: diagnostic.BucketResult{Error: gateway},
	}

	got := Markdown(r)

	tables := strings.SplitN(strings.SplitN(got, "## Tabelas\n\n", 2)[1], "\n\n", 2)[0]
	want := []string{
		"❌ **cattle**: Não encontrada - <html> <head><title>502 Bad Gateway</title></head> " +
			"<body> <center><h1>502 Bad Gateway</h1></center> </body> </html>",
		"❌ **horses**: Erro ao contar registros - timeout retry later",
	}
	if diff := cmp.Diff(want, strings.Split(tables, "\n")); diff != "" {
		t.Errorf("table lines mismatch (-want +got):\n%s", diff)
	}

	bucketSection := strings.SplitN(got, "## Buckets de Storage\n\n", 2)[1]
	if strings.Count(bucketSection, "\n") != 1 {
		t.Errorf("bucket section should be one line, got %q", bucketSection)
	}
}

func TestMarkdown_Deterministic(t *testing.T) {
	r := mixedReport()
	first := Markdown(r)
	for i := 0; i < 5; i++ {
		if got := Markdown(r); got != first {
			t.Fatalf("render %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON(mixedReport())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("JSON output should end with a newline")
	}

	var decoded struct {
		Tables  []map[string]any `json:"tables"`
		Buckets struct {
			Names []string `json:"names"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}

	if decoded.Tables[0]["rowCount"] != float64(3) {
		t.Errorf("cattle rowCount = %v, want 3", decoded.Tables[0]["rowCount"])
	}
	if _, ok := decoded.Tables[1]["rowCount"]; ok {
		t.Error("missing table should omit rowCount")
	}
	if decoded.Tables[2]["rowCount"] != "error" {
		t.Errorf("count failure rowCount = %v, want \"error\"", decoded.Tables[2]["rowCount"])
	}
	if diff := cmp.Diff([]string{"avatars", "documents"}, decoded.Buckets.Names); diff != "" {
		t.Errorf("bucket names mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON_EmptyTablesIsArray(t *testing.T) {
	data, err := JSON(&diagnostic.Report{})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(string(data), `"tables": []`) {
		t.Errorf("tables should encode as an empty array:\n%s", data)
	}
}

func TestRender(t *testing.T) {
	r := mixedReport()

	md, err := Render(r, "")
	if err != nil || string(md) != Markdown(r) {
		t.Errorf("Render default should be markdown, err=%v", err)
	}

	js, err := Render(r, FormatJSON)
	if err != nil || !json.Valid(js) {
		t.Errorf("Render json invalid, err=%v", err)
	}

	if _, err := Render(r, "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(mixedReport())

	want := Summary{Total: 3, OK: 1, Missing: 1, CountFailed: 1, BucketsOK: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
	if got.Healthy() {
		t.Error("summary with failures should not be healthy")
	}
	if got.String() != "1/3 tables ok, 1 missing, 1 count errors, buckets ok" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestSummarize_Healthy(t *testing.T) {
	r := &diagnostic.Report{
		Tables:  []diagnostic.TableStatus{{Table: "cattle", Exists: true, RowCount: 1}},
		Buckets: diagnostic.BucketResult{Names: []string{}},
	}
	if !Summarize(r).Healthy() {
		t.Error("expected healthy summary")
	}

	r.Buckets = diagnostic.BucketResult{Error: "down"}
	if Summarize(r).Healthy() {
		t.Error("bucket failure should make the summary unhealthy")
	}
}
