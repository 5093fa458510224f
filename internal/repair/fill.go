package repair

import (
	"fmt"
	"sort"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

// Direction of a directional fill.
type Direction int

const (
	// Forward propagates the last seen value downward into nulls.
	Forward Direction = iota + 1
	// Backward propagates the next seen value upward into nulls.
	Backward
)

type policyKind int

const (
	policyUnset policyKind = iota
	policyConstant
	policyComputed
	policyDirectional
)

// FillPolicy says how to populate one column's cells. Build one with
// Constant, Computed or Directional; the zero value is invalid and is
// rejected as a configuration error.
type FillPolicy struct {
	kind     policyKind
	constant any
	fn       func(frame.Row) any
	dir      Direction
}

// Constant fills selected cells with a single value.
func Constant(v any) FillPolicy {
	return FillPolicy{kind: policyConstant, constant: v}
}

// Computed fills each selected cell with fn applied to its row. fn gets a
// copy of the row and must return a scalar cell value.
func Computed(fn func(frame.Row) any) FillPolicy {
	return FillPolicy{kind: policyComputed, fn: fn}
}

// Directional fills selected cells by forward- or backward-filling the
// column. The fill runs over the whole column but never leaks outside the
// selected rows: every unselected row keeps its original value.
func Directional(d Direction) FillPolicy {
	return FillPolicy{kind: policyDirectional, dir: d}
}

// FillPlan maps column names to fill policies. Every key must name a
// column of the target dataset.
type FillPlan map[string]FillPolicy

// validatePlan rejects plans whose keys are not columns or whose policies
// are malformed. These are configuration errors, raised before any edit.
func validatePlan(f *frame.Frame, plan FillPlan) error {
	for col, policy := range plan {
		if !f.HasColumn(col) {
			return fmt.Errorf("fill plan key %q is not a column; columns available: %v", col, f.Columns())
		}
		switch policy.kind {
		case policyConstant:
		case policyComputed:
			if policy.fn == nil {
				return fmt.Errorf("fill plan for %q: computed policy has no function", col)
			}
		case policyDirectional:
			if policy.dir != Forward && policy.dir != Backward {
				return fmt.Errorf("fill plan for %q: unknown fill direction %d", col, policy.dir)
			}
		default:
			return fmt.Errorf("fill plan for %q: unknown fill policy", col)
		}
	}
	return nil
}

// FillByPlan returns a copy of f with the selected rows filled per the
// plan. rowsToEdit lists row indices; nil selects every row. Rows outside
// the selection are left untouched, including by directional fills. A nil
// plan returns f unchanged.
func FillByPlan(f *frame.Frame, plan FillPlan, rowsToEdit []int) (*frame.Frame, error) {
	if plan == nil {
		return f, nil
	}
	if f == nil {
		return nil, fmt.Errorf("no dataset given to fill")
	}
	if err := validatePlan(f, plan); err != nil {
		return nil, err
	}

	edit := rowsToEdit
	if edit == nil {
		edit = make([]int, f.NumRows())
		for i := range edit {
			edit[i] = i
		}
	}
	selected := make(map[int]bool, len(edit))
	for _, i := range edit {
		if i < 0 || i >= f.NumRows() {
			return nil, fmt.Errorf("row %d to edit is out of range (have %d rows)", i, f.NumRows())
		}
		selected[i] = true
	}

	out := f.Clone()

	// Map iteration order is randomized; apply policies in a stable
	// column order.
	cols := make([]string, 0, len(plan))
	for col := range plan {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		policy := plan[col]
		switch policy.kind {
		case policyConstant:
			for _, i := range edit {
				out.Set(i, col, policy.constant)
			}
		case policyComputed:
			for _, i := range edit {
				out.Set(i, col, policy.fn(copyRow(out.Row(i))))
			}
		case policyDirectional:
			before := make([]any, out.NumRows())
			for i := 0; i < out.NumRows(); i++ {
				before[i] = out.Value(i, col)
			}
			directionalFill(out, col, policy.dir)
			for i := 0; i < out.NumRows(); i++ {
				if !selected[i] {
					out.Set(i, col, before[i])
				}
			}
		}
	}
	return out, nil
}

// directionalFill fills nulls across the whole column from the given
// direction.
func directionalFill(f *frame.Frame, col string, d Direction) {
	n := f.NumRows()
	switch d {
	case Forward:
		var last any
		for i := 0; i < n; i++ {
			if v := f.Value(i, col); v != nil {
				last = v
			} else if last != nil {
				f.Set(i, col, last)
			}
		}
	case Backward:
		var next any
		for i := n - 1; i >= 0; i-- {
			if v := f.Value(i, col); v != nil {
				next = v
			} else if next != nil {
				f.Set(i, col, next)
			}
		}
	}
}

func copyRow(r frame.Row) frame.Row {
	cp := make(frame.Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
