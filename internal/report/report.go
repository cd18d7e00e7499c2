// Package report renders a diagnostic.Report for people and machines.
//
// All formatters are pure: the same report always produces the same bytes.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
)

const (
	markOK   = "✅"
	markFail = "❌"
)

// Format names accepted by the CLI, HTTP and MCP surfaces.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatMarkdown, FormatJSON}
}

// Render dispatches to the formatter named by format.
func Render(r *diagnostic.Report, format string) ([]byte, error) {
	switch format {
	case FormatMarkdown, "":
		return []byte(Markdown(r)), nil
	case FormatJSON:
		return JSON(r)
	default:
		return nil, fmt.Errorf("report: unknown format %q (want %s)", format, strings.Join(Formats(), " or "))
	}
}

// Markdown renders the report with a "Tabelas" section, one line per table
// in report order, followed by a "Buckets de Storage" section.
func Markdown(r *diagnostic.Report) string {
	var b strings.Builder

	b.WriteString("# Diagnóstico do Banco de Dados\n\n")

	b.WriteString("## Tabelas\n\n")
	for _, t := range r.Tables {
		b.WriteString(tableLine(t))
		b.WriteByte('\n')
	}

	b.WriteString("\n## Buckets de Storage\n\n")
	b.WriteString(bucketLine(r.Buckets))
	b.WriteByte('\n')

	return b.String()
}

func tableLine(t diagnostic.TableStatus) string {
	switch {
	case !t.Exists:
		return fmt.Sprintf("%s **%s**: Não encontrada - %s", markFail, t.Table, oneLine(t.Error))
	case t.CountFailed:
		return fmt.Sprintf("%s **%s**: Erro ao contar registros - %s", markFail, t.Table, oneLine(t.Error))
	default:
		return fmt.Sprintf("%s **%s**: %d registros", markOK, t.Table, t.RowCount)
	}
}

func bucketLine(b diagnostic.BucketResult) string {
	switch {
	case !b.OK():
		return fmt.Sprintf("%s Erro ao listar buckets - %s", markFail, oneLine(b.Error))
	case len(b.Names) == 0:
		return markOK + " Nenhum bucket encontrado"
	default:
		return markOK + " " + strings.Join(b.Names, ", ")
	}
}

// oneLine collapses whitespace runs, line breaks included, to one space
// so every table keeps a single line.
func oneLine(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}

// JSON renders the report as indented JSON terminated by a newline.
func JSON(r *diagnostic.Report) ([]byte, error) {
	out := *r
	if out.Tables == nil {
		out.Tables = []diagnostic.TableStatus{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: encoding json: %w", err)
	}
	return append(data, '\n'), nil
}

// Summary tallies a report.
type Summary struct {
	Total       int  `json:"total"`
	OK          int  `json:"ok"`
	Missing     int  `json:"missing"`
	CountFailed int  `json:"countFailed"`
	BucketsOK   bool `json:"bucketsOk"`
}

// Healthy reports whether nothing failed.
func (s Summary) Healthy() bool {
	return s.OK == s.Total && s.BucketsOK
}

// String returns a one-line summary suitable for logs.
func (s Summary) String() string {
	buckets := "ok"
	if !s.BucketsOK {
		buckets = "failed"
	}
	return fmt.Sprintf("%d/%d tables ok, %d missing, %d count errors, buckets %s",
		s.OK, s.Total, s.Missing, s.CountFailed, buckets)
}

// Summarize tallies the table outcomes and the bucket result.
func Summarize(r *diagnostic.Report) Summary {
	s := Summary{Total: len(r.Tables), BucketsOK: r.Buckets.OK()}
	for _, t := range r.Tables {
		switch {
		case !t.Exists:
			s.Missing++
		case t.CountFailed:
			s.CountFailed++
		default:
			s.OK++
		}
	}
	return s
}
