// Package backend defines what the diagnostic needs from the farm
// backend: a relational store it can probe and count, and an object
// store it can list buckets from.
//
// Drivers live in subpackages (postgres, sqlite, rest, fsbucket) and
// report failures as *QueryError so callers can tell a missing table
// from a denied query without parsing driver messages.
package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// TableStore is the query side of the relational backend.
type TableStore interface {
	// Select runs a bounded query against table and returns how many
	// rows came back. It is used as an existence probe.
	Select(ctx context.Context, table string, columns []string, limit int) (int, error)

	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int64, error)
}

// BucketLister is the object-storage side of the backend.
type BucketLister interface {
	ListBuckets(ctx context.Context) ([]Bucket, error)
}

// Bucket is a named container in object storage.
type Bucket struct {
	Name      string    `json:"name"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Kind classifies a backend failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindUnavailable
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnavailable:
		return "unavailable"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("backend unavailable")
	ErrInvalidName      = errors.New("invalid identifier")
)

// QueryError is a failed backend call. Error returns the backend's own
// message unchanged, since that text ends up in the report.
type QueryError struct {
	Kind    Kind
	Table   string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel for the error's kind.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrTableNotFound:
		return e.Kind == KindNotFound
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrInvalidName:
		return e.Kind == KindInvalid
	}
	return false
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindUnknown
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateIdentifier rejects anything that is not a plain SQL identifier.
// Drivers build table and column names into query text, so every name
// goes through here first.
func ValidateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return &QueryError{
			Kind:    KindInvalid,
			Table:   name,
			Message: fmt.Sprintf("invalid identifier %q", name),
			Err:     ErrInvalidName,
		}
	}
	return nil
}

// ValidateColumns checks a probe column list. "*" is accepted on its own.
func ValidateColumns(columns []string) error {
	if len(columns) == 1 && columns[0] == "*" {
		return nil
	}
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return err
		}
	}
	return nil
}
