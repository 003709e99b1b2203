package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// TableDescriptor names a table and its columns in declaration order.
type TableDescriptor struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// RowFailure records one row whose insert into the destination failed.
type RowFailure struct {
	Index  int    `json:"index"` // zero-based position in the source scan
	Row    []any  `json:"row"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// MarshalJSON encodes the failure with non-finite REAL values, which JSON
// cannot represent, written as the strings "+Inf", "-Inf", and "NaN".
func (f RowFailure) MarshalJSON() ([]byte, error) {
	type plain RowFailure
	p := plain(f)
	if f.Row != nil {
		p.Row = make([]any, len(f.Row))
		for i, v := range f.Row {
			if x, ok := v.(float64); ok && (math.IsInf(x, 0) || math.IsNaN(x)) {
				v = strconv.FormatFloat(x, 'g', -1, 64)
			}
			p.Row[i] = v
		}
	}
	return json.Marshal(p)
}

// TableReport accounts for the copy of a single table.
type TableReport struct {
	Table     string       `json:"table"`
	Columns   []string     `json:"columns,omitempty"`
	Attempted int          `json:"attempted"`
	Succeeded int          `json:"succeeded"`
	Failed    []RowFailure `json:"failed,omitempty"`

	// Err is set when the table could not be described or read. Rows
	// counted before the failure stay counted.
	Err    error  `json:"-"`
	Reason string `json:"error,omitempty"`
}

// RecordRow accounts for one attempted insert. A nil err counts as success.
func (r *TableReport) RecordRow(index int, row []any, err error) {
	r.Attempted++
	if err == nil {
		r.Succeeded++
		return
	}
	r.Failed = append(r.Failed, RowFailure{
		Index:  index,
		Row:    row,
		Reason: err.Error(),
		Err:    err,
	})
}

// Fail marks the whole table as failed.
func (r *TableReport) Fail(err error) {
	r.Err = err
	r.Reason = err.Error()
}

// OK reports whether the table was read completely and every row inserted.
func (r TableReport) OK() bool {
	return r.Err == nil && len(r.Failed) == 0
}

// CopyReport collects the per-table reports of a copy, in copy order.
type CopyReport struct {
	Tables []TableReport `json:"tables"`
}

// Attempted returns the number of rows attempted across all tables.
func (c CopyReport) Attempted() int {
	n := 0
	for _, t := range c.Tables {
		n += t.Attempted
	}
	return n
}

// Succeeded returns the number of rows inserted across all tables.
func (c CopyReport) Succeeded() int {
	n := 0
	for _, t := range c.Tables {
		n += t.Succeeded
	}
	return n
}

// FailedRows returns the number of rows skipped across all tables.
func (c CopyReport) FailedRows() int {
	n := 0
	for _, t := range c.Tables {
		n += len(t.Failed)
	}
	return n
}

// FailedTables returns the names of tables that could not be read.
func (c CopyReport) FailedTables() []string {
	var names []string
	for _, t := range c.Tables {
		if t.Err != nil {
			names = append(names, t.Table)
		}
	}
	return names
}

// FailureRate returns FailedRows / Attempted, or 0 when nothing was
// attempted.
func (c CopyReport) FailureRate() float64 {
	attempted := c.Attempted()
	if attempted == 0 {
		return 0
	}
	return float64(c.FailedRows()) / float64(attempted)
}
