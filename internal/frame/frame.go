// Package frame holds the tabular container shared by the acquisition and
// repair code: an ordered list of column names plus rows of named cells.
// A nil cell, or a column absent from a row, both mean "no value".
package frame

import (
	"fmt"
	"sort"
	"time"
)

// Row maps column names to cell values. Supported cell types are the ones
// the decoders produce: string, float64, bool, time.Time and nil.
type Row map[string]any

// Frame is an ordered tabular dataset. Row order is insertion order; column
// order is tracked separately so reordering never touches row data.
type Frame struct {
	cols []string
	rows []Row
}

// New returns an empty frame with the given column order.
func New(cols ...string) *Frame {
	f := &Frame{cols: make([]string, 0, len(cols))}
	f.cols = append(f.cols, cols...)
	return f
}

// FromRows builds a frame from pre-existing rows. Row keys not listed in
// cols are appended to the column order in first-seen order.
func FromRows(cols []string, rows []Row) *Frame {
	f := New(cols...)
	for _, r := range rows {
		f.Append(r)
	}
	return f
}

// Columns returns a copy of the column order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// NumRows reports the number of rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool { return len(f.rows) == 0 }

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.cols {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the order if it is not already present.
func (f *Frame) AddColumn(name string) {
	if !f.HasColumn(name) {
		f.cols = append(f.cols, name)
	}
}

// Row returns the i-th row. The returned map is the frame's own storage;
// callers that need an independent copy should copy it themselves.
func (f *Frame) Row(i int) Row { return f.rows[i] }

// Value returns the cell at (row i, column name), or nil when unset.
func (f *Frame) Value(i int, name string) any {
	return f.rows[i][name]
}

// Set assigns the cell at (row i, column name), extending the column order
// if the column is new.
func (f *Frame) Set(i int, name string, v any) {
	f.AddColumn(name)
	if f.rows[i] == nil {
		f.rows[i] = Row{}
	}
	f.rows[i][name] = v
}

// Append adds one row. Keys unseen so far extend the column order, keeping
// the frame permissive about per-row schema drift.
func (f *Frame) Append(r Row) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.AddColumn(k)
	}
	if r == nil {
		r = Row{}
	}
	f.rows = append(f.rows, r)
}

// Concat appends all rows of other to f. Columns of other that f has not
// seen are appended to f's column order in other's order. Schema mismatch
// between the two frames is tolerated rather than rejected.
func (f *Frame) Concat(other *Frame) {
	if other == nil {
		return
	}
	for _, c := range other.cols {
		f.AddColumn(c)
	}
	f.rows = append(f.rows, other.rows...)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.cols...)
	out.rows = make([]Row, len(f.rows))
	for i, r := range f.rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.rows[i] = cp
	}
	return out
}

// Reorder returns a frame whose columns are ordered as: every column not
// named in properties, in its original relative order, followed by the
// properties in the given order. Properties not yet present are created as
// all-null columns. A nil property list returns f unchanged. Rows are
// shared with f; only the column order is new.
func (f *Frame) Reorder(properties []string) *Frame {
	if properties == nil {
		return f
	}
	requested := make(map[string]bool, len(properties))
	for _, p := range properties {
		requested[p] = true
	}
	cols := make([]string, 0, len(f.cols)+len(properties))
	for _, c := range f.cols {
		if !requested[c] {
			cols = append(cols, c)
		}
	}
	cols = append(cols, properties...)
	return &Frame{cols: cols, rows: f.rows}
}

// Distinct returns the distinct values of a column in row-arrival order.
func (f *Frame) Distinct(name string) []any {
	seen := make(map[any]bool)
	var out []any
	for _, r := range f.rows {
		v := r[name]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Select returns a new frame holding the rows whose cell in the named
// column equals v. Rows are shared with f.
func (f *Frame) Select(name string, v any) *Frame {
	out := New(f.cols...)
	for _, r := range f.rows {
		if r[name] == v {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// Remove drops every row whose cell in the named column equals v.
func (f *Frame) Remove(name string, v any) {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r[name] != v {
			kept = append(kept, r)
		}
	}
	f.rows = kept
}

// TimeValue interprets a cell as a time, reporting false for anything that
// is not a time.Time.
func TimeValue(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

// ParseTimeColumn converts every non-null string cell of the named column
// to time.Time, trying the given layouts in order. With no layouts the
// formats used by the climate service are tried: "2006-01-02 15:04:05",
// "2006-01-02" and RFC 3339.
func (f *Frame) ParseTimeColumn(name string, layouts ...string) error {
	if !f.HasColumn(name) {
		return fmt.Errorf("column %q not found; columns available: %v", name, f.cols)
	}
	if len(layouts) == 0 {
		layouts = []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339}
	}
	for i, r := range f.rows {
		v := r[name]
		if v == nil {
			continue
		}
		if _, ok := v.(time.Time); ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("row %d: cannot parse %T as a time", i, v)
		}
		var parsed time.Time
		var err error
		for _, layout := range layouts {
			if parsed, err = time.Parse(layout, s); err == nil {
				break
			}
		}
		if err != nil {
			return fmt.Errorf("row %d: unparseable time %q", i, s)
		}
		r[name] = parsed
	}
	return nil
}

// TimeBounds returns the minimum and maximum time in the named column,
// ignoring null cells. ok is false when the column holds no times.
func (f *Frame) TimeBounds(name string) (min, max time.Time, ok bool) {
	for _, r := range f.rows {
		t, isTime := TimeValue(r[name])
		if !isTime {
			continue
		}
		if !ok {
			min, max, ok = t, t, true
			continue
		}
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	return min, max, ok
}

// SortByTime sorts rows ascending by the named time column. Null cells
// order before any time.
func (f *Frame) SortByTime(name string) {
	sort.SliceStable(f.rows, func(i, j int) bool {
		ti, iok := TimeValue(f.rows[i][name])
		tj, jok := TimeValue(f.rows[j][name])
		if !iok {
			return jok
		}
		if !jok {
			return false
		}
		return ti.Before(tj)
	})
}
