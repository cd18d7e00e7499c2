// Package diagnostic checks the farm backend: whether each configured
// table exists and how many rows it holds, and which storage buckets
// are present. Every failure is captured in the returned Report; a run
// never fails as a whole.
package diagnostic

import (
	"encoding/json"
	"fmt"
)

// rowCountError is the JSON value of RowCount when counting failed.
const rowCountError = "error"

// TableStatus is the outcome of checking one table.
//
// Exists == false means the existence probe failed and Error holds its
// message. Exists with CountFailed means the probe passed but counting
// did not; Error then holds the count failure.
type TableStatus struct {
	Table       string
	Exists      bool
	RowCount    int64
	CountFailed bool
	Error       string
}

// OK reports whether the table exists and was counted.
func (s TableStatus) OK() bool {
	return s.Exists && !s.CountFailed
}

func missing(table string, err error) TableStatus {
	return TableStatus{Table: table, Error: err.Error()}
}

func countFailed(table string, err error) TableStatus {
	return TableStatus{Table: table, Exists: true, CountFailed: true, Error: err.Error()}
}

func counted(table string, n int64) TableStatus {
	return TableStatus{Table: table, Exists: true, RowCount: n}
}

type tableStatusJSON struct {
	Table        string `json:"table"`
	Exists       bool   `json:"exists"`
	RowCount     any    `json:"rowCount,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// MarshalJSON encodes RowCount as a number, as "error" when counting
// failed, or omits it when the table does not exist.
func (s TableStatus) MarshalJSON() ([]byte, error) {
	out := tableStatusJSON{Table: s.Table, Exists: s.Exists, ErrorMessage: s.Error}
	switch {
	case s.OK():
		out.RowCount = s.RowCount
	case s.Exists:
		out.RowCount = rowCountError
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *TableStatus) UnmarshalJSON(data []byte) error {
	var in struct {
		Table        string          `json:"table"`
		Exists       bool            `json:"exists"`
		RowCount     json.RawMessage `json:"rowCount"`
		ErrorMessage string          `json:"errorMessage"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*s = TableStatus{Table: in.Table, Exists: in.Exists, Error: in.ErrorMessage}
	if len(in.RowCount) == 0 || string(in.RowCount) == "null" {
		return nil
	}
	if string(in.RowCount) == `"`+rowCountError+`"` {
		s.CountFailed = true
		return nil
	}
	if err := json.Unmarshal(in.RowCount, &s.RowCount); err != nil {
		return fmt.Errorf("rowCount: %w", err)
	}
	return nil
}

// BucketResult is either the bucket names or the listing error.
type BucketResult struct {
	Names []string `json:"names,omitempty"`
	Error string   `json:"error,omitempty"`
}

// OK reports whether listing succeeded.
func (b BucketResult) OK() bool {
	return b.Error == ""
}

// Report is the result of one diagnostic run. Tables follow the
// configured order.
type Report struct {
	Tables  []TableStatus `json:"tables"`
	Buckets BucketResult  `json:"buckets"`
}

// Healthy reports whether every table was counted and buckets were listed.
func (r *Report) Healthy() bool {
	for _, t := range r.Tables {
		if !t.OK() {
			return false
		}
	}
	return r.Buckets.OK()
}
