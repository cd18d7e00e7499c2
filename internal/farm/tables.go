// Package farm holds the catalog of tables the farm-management backend
// is expected to expose.
package farm

// Table names as created by the farm-management schema.
const (
	TableCattle         = "cattle"
	TableHorses         = "horses"
	TableHealthRecords  = "health_records"
	TableDocuments      = "documents"
	TableCalendarEvents = "calendar_events"
)

// Table describes one entry of the catalog.
type Table struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

var catalog = []Table{
	{Name: TableCattle, Label: "Gado"},
	{Name: TableHorses, Label: "Cavalos"},
	{Name: TableHealthRecords, Label: "Registros de saúde"},
	{Name: TableDocuments, Label: "Documentos"},
	{Name: TableCalendarEvents, Label: "Eventos do calendário"},
}

// DefaultTables returns the names of the catalog tables in check order.
func DefaultTables() []string {
	names := make([]string, len(catalog))
	for i, t := range catalog {
		names[i] = t.Name
	}
	return names
}

// Describe returns catalog entries for the given names, preserving order.
// Names outside the catalog get their own name as label.
func Describe(names []string) []Table {
	out := make([]Table, 0, len(names))
	for _, n := range names {
		out = append(out, Table{Name: n, Label: Label(n)})
	}
	return out
}

// Label returns the human label for a table name.
func Label(name string) string {
	for _, t := range catalog {
		if t.Name == name {
			return t.Label
		}
	}
	return name
}
