// Package fsbucket lists buckets from a local directory: every
// sub-directory of the root is a bucket. It backs offline runs against
// a downloaded copy of the storage service.
package fsbucket

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/HendryAvila/farmcheck/internal/backend"
)

// Lister implements backend.BucketLister over a directory.
type Lister struct {
	root string
}

var _ backend.BucketLister = (*Lister)(nil)

// New returns a Lister rooted at dir. The directory is read lazily.
func New(dir string) *Lister {
	return &Lister{root: dir}
}

// ListBuckets returns the non-hidden sub-directories of the root,
// sorted by name.
func (l *Lister) ListBuckets(ctx context.Context) ([]backend.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backend.QueryError{Kind: backend.KindUnavailable, Message: err.Error(), Err: err}
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		kind := backend.KindUnknown
		switch {
		case errors.Is(err, fs.ErrNotExist):
			kind = backend.KindNotFound
		case errors.Is(err, fs.ErrPermission):
			kind = backend.KindPermissionDenied
		}
		return nil, &backend.QueryError{Kind: kind, Message: err.Error(), Err: err}
	}

	buckets := make([]backend.Bucket, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		b := backend.Bucket{Name: e.Name()}
		if info, err := e.Info(); err == nil {
			b.CreatedAt = info.ModTime().UTC()
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}
