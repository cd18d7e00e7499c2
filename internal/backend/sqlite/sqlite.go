// Package sqlite implements backend.TableStore over a local SQLite file,
// typically a snapshot of the farm database used offline.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/farmcheck/internal/backend"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store runs diagnostic queries against one SQLite database.
type Store struct {
	db *sql.DB
}

var _ backend.TableStore = (*Store)(nil)

// Open opens an existing database file. The connection is put in
// query_only mode: the diagnostic never writes.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite: database file: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA query_only = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Select implements backend.TableStore.
func (s *Store) Select(ctx context.Context, table string, columns []string, limit int) (int, error) {
	if err := backend.ValidateIdentifier(table); err != nil {
		return 0, err
	}
	if err := backend.ValidateColumns(columns); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s LIMIT ?", columnList(columns), quote(table))
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return 0, classify(table, err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return n, classify(table, err)
	}
	return n, nil
}

// Count implements backend.TableStore.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if err := backend.ValidateIdentifier(table); err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(table)).Scan(&n); err != nil {
		return 0, classify(table, err)
	}
	return n, nil
}

// quote brackets ident. A double-quoted name that matches no column
// would be read as a string literal.
func quote(ident string) string {
	return "[" + ident + "]"
}

func columnList(columns []string) string {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

// classify maps driver errors onto backend kinds by message, the same
// way the driver reports them.
func classify(table string, err error) error {
	msg := err.Error()
	kind := backend.KindUnknown
	switch {
	case strings.Contains(msg, "no such table"):
		kind = backend.KindNotFound
	case strings.Contains(msg, "no such column"):
		kind = backend.KindInvalid
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "unable to open"),
		errors.Is(err, sql.ErrConnDone):
		kind = backend.KindUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = backend.KindUnavailable
	}
	return &backend.QueryError{Kind: kind, Table: table, Message: msg, Err: err}
}
