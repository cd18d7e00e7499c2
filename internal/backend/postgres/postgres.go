// Package postgres implements the farm backend over the hosted Postgres
// database: table probes and counts through a pgx pool, and bucket
// listing from the storage.buckets catalog table that the hosted
// object-storage service keeps in the same database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/farmcheck/internal/backend"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DefaultSchema is used when Config.Schema is empty.
const DefaultSchema = "public"

// Config holds connection settings.
type Config struct {
	URL      string
	Schema   string
	MaxConns int32
}

// querier is the subset of *pgxpool.Pool the store sends SQL through.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// connect is a package-level var to allow test injection.
var connect = pgxpool.ConnectConfig

// Store is a backend.TableStore and backend.BucketLister over Postgres.
type Store struct {
	pool   *pgxpool.Pool
	q      querier
	schema string
}

var (
	_ backend.TableStore   = (*Store)(nil)
	_ backend.BucketLister = (*Store)(nil)
)

// Open parses cfg.URL and creates a pool. No connection is made until
// the first query.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	// Connection failures surface per query, as part of the report.
	pcfg.LazyConnect = true

	pool, err := connect(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	s := newStore(pool, cfg.Schema)
	s.pool = pool
	return s, nil
}

func newStore(q querier, schema string) *Store {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Store{q: q, schema: schema}
}

// Close releases the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Select implements backend.TableStore.
func (s *Store) Select(ctx context.Context, table string, columns []string, limit int) (int, error) {
	if err := backend.ValidateIdentifier(table); err != nil {
		return 0, err
	}
	if err := backend.ValidateColumns(columns); err != nil {
		return 0, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s LIMIT $1", columnList(columns), s.qualified(table))
	rows, err := s.q.Query(ctx, sql, limit)
	if err != nil {
		return 0, classify(table, err)
	}
	defer rows.Close()

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
	if err := s.q.QueryRow(ctx, "SELECT count(*) FROM "+s.qualified(table)).Scan(&n); err != nil {
		return 0, classify(table, err)
	}
	return n, nil
}

const listBucketsSQL = `SELECT "name", COALESCE("public", false), "created_at" FROM "storage"."buckets" ORDER BY "name"`

// ListBuckets implements backend.BucketLister.
func (s *Store) ListBuckets(ctx context.Context) ([]backend.Bucket, error) {
	rows, err := s.q.Query(ctx, listBucketsSQL)
	if err != nil {
		return nil, classify("storage.buckets", err)
	}
	defer rows.Close()

	var buckets []backend.Bucket
	for rows.Next() {
		var (
			b       backend.Bucket
			created *time.Time
		)
		if err := rows.Scan(&b.Name, &b.Public, &created); err != nil {
			return nil, classify("storage.buckets", err)
		}
		if created != nil {
			b.CreatedAt = *created
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("storage.buckets", err)
	}
	return buckets, nil
}

func (s *Store) qualified(table string) string {
	return pgx.Identifier{s.schema, table}.Sanitize()
}

func columnList(columns []string) string {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// classify turns a pgx error into a *backend.QueryError. Server errors
// keep the server's message; anything else is a transport problem.
func classify(table string, err error) error {
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
		kind := backend.KindUnknown
		switch {
		case pgerr.Code == pgerrcode.UndefinedTable,
			pgerr.Code == pgerrcode.InvalidSchemaName:
			kind = backend.KindNotFound
		case pgerr.Code == pgerrcode.InsufficientPrivilege:
			kind = backend.KindPermissionDenied
		case pgerr.Code == pgerrcode.UndefinedColumn:
			kind = backend.KindInvalid
		case pgerrcode.IsConnectionException(pgerr.Code),
			pgerrcode.IsInsufficientResources(pgerr.Code):
			kind = backend.KindUnavailable
		}
		return &backend.QueryError{Kind: kind, Table: table, Message: pgerr.Message, Err: err}
	}

	return &backend.QueryError{Kind: backend.KindUnavailable, Table: table, Message: err.Error(), Err: err}
}
