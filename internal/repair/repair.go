// Package repair detects and fills gaps in acquired daily time series:
// missing calendar days are inserted as blank rows, designated columns are
// populated per a caller-supplied fill plan, and coverage ratios report how
// complete a series is over its own date span.
package repair

import (
	"fmt"
	"time"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

// SourceIndexColumn records each row's position in the dataset as it came
// in, so rows inserted by AddMissingDays stay distinguishable: they are
// the ones with a null source index.
const SourceIndexColumn = "SOURCE_INDEX"

// CoverageSuffix is appended to column names in DailyCoverage results.
const CoverageSuffix = "_COVERAGE"

// AddMissingDays returns a copy of f sorted by date with one blank row
// inserted for every calendar day absent from [min(date), max(date)]. The
// date cell of an inserted row carries the day itself; every other column
// is null until the plan fills it. The plan is applied only to the
// inserted rows. Dates must already be parsed time.Time values (see
// frame.ParseTimeColumn).
func AddMissingDays(f *frame.Frame, dateColumn string, plan FillPlan) (*frame.Frame, error) {
	if f == nil {
		return nil, fmt.Errorf("no dataset given")
	}
	if f.NumRows() == 0 {
		return nil, fmt.Errorf("dataset has no rows to repair")
	}
	if err := validatePlan(f, plan); err != nil {
		return nil, err
	}

	type dated struct {
		day time.Time
		row frame.Row
		idx int
	}
	byDay := make(map[time.Time]dated, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		t, err := rowTime(f, i, dateColumn)
		if err != nil {
			return nil, err
		}
		day := truncateToDay(t)
		if _, dup := byDay[day]; dup {
			return nil, fmt.Errorf("duplicate date %s in column %q; cannot reindex by day", day.Format("2006-01-02"), dateColumn)
		}
		byDay[day] = dated{day: day, row: f.Row(i), idx: i}
	}

	first, last, _ := f.TimeBounds(dateColumn)
	first = truncateToDay(first)
	last = truncateToDay(last)

	cols := append([]string{SourceIndexColumn}, f.Columns()...)
	out := frame.New(cols...)
	var inserted []int

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if d, ok := byDay[day]; ok {
			row := copyRow(d.row)
			row[SourceIndexColumn] = d.idx
			out.Append(row)
			continue
		}
		out.Append(frame.Row{dateColumn: day})
		inserted = append(inserted, out.NumRows()-1)
	}

	if plan == nil {
		return out, nil
	}
	return FillByPlan(out, plan, inserted)
}

// DailyCoverage reports, for each named column, the fraction of calendar
// days in the dataset's own date span holding a non-missing value. Days
// absent as rows penalize coverage the same as present-but-null cells.
// Result keys are the column names with CoverageSuffix appended.
func DailyCoverage(f *frame.Frame, columns []string, dateColumn string) (map[string]float64, error) {
	spanDays, err := validateCoverageInput(f, columns, dateColumn)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(columns))
	for _, col := range columns {
		count := 0
		for i := 0; i < f.NumRows(); i++ {
			if f.Value(i, col) != nil {
				count++
			}
		}
		out[col+CoverageSuffix] = float64(count) / float64(spanDays)
	}
	return out, nil
}

// DailyColumnCoverage is DailyCoverage for a single column.
func DailyColumnCoverage(f *frame.Frame, column, dateColumn string) (float64, error) {
	cov, err := DailyCoverage(f, []string{column}, dateColumn)
	if err != nil {
		return 0, err
	}
	return cov[column+CoverageSuffix], nil
}

// PercentRowsFullyCovered reports the fraction of calendar days in the
// span whose row has a non-missing value in every named column.
func PercentRowsFullyCovered(f *frame.Frame, columns []string, dateColumn string) (float64, error) {
	spanDays, err := validateCoverageInput(f, columns, dateColumn)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := 0; i < f.NumRows(); i++ {
		full := true
		for _, col := range columns {
			if f.Value(i, col) == nil {
				full = false
				break
			}
		}
		if full {
			count++
		}
	}
	return float64(count) / float64(spanDays), nil
}

// ListMissingDays returns every calendar day in the dataset's date span
// not present in the date column, in ascending order. The result has at
// most span-many entries, and
//
//	len(missing) + distinct days present == span days
//
// always holds.
func ListMissingDays(f *frame.Frame, dateColumn string) ([]time.Time, error) {
	if f == nil {
		return nil, fmt.Errorf("no dataset given")
	}
	if f.NumRows() == 0 {
		return nil, fmt.Errorf("dataset has no rows to inspect")
	}

	present := make(map[time.Time]bool, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		t, err := rowTime(f, i, dateColumn)
		if err != nil {
			return nil, err
		}
		present[truncateToDay(t)] = true
	}

	first, last, _ := f.TimeBounds(dateColumn)
	first = truncateToDay(first)
	last = truncateToDay(last)

	var missing []time.Time
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !present[day] {
			missing = append(missing, day)
		}
	}
	return missing, nil
}

// validateCoverageInput checks the shape shared by the coverage
// calculations and returns the span length in days.
func validateCoverageInput(f *frame.Frame, columns []string, dateColumn string) (int, error) {
	if f == nil {
		return 0, fmt.Errorf("no dataset given")
	}
	if f.NumRows() == 0 {
		return 0, fmt.Errorf("dataset has no rows")
	}
	for _, col := range columns {
		if !f.HasColumn(col) {
			return 0, fmt.Errorf("column %q not found; columns available: %v", col, f.Columns())
		}
	}
	for i := 0; i < f.NumRows(); i++ {
		if _, err := rowTime(f, i, dateColumn); err != nil {
			return 0, err
		}
	}
	first, last, ok := f.TimeBounds(dateColumn)
	if !ok {
		return 0, fmt.Errorf("column %q holds no dates", dateColumn)
	}
	first = truncateToDay(first)
	last = truncateToDay(last)
	return int(last.Sub(first).Hours()/24+0.5) + 1, nil
}

// rowTime reads the date cell of row i, rejecting anything that is not a
// time. A null date is a shape error too: a row without a date cannot be
// placed on the calendar.
func rowTime(f *frame.Frame, i int, dateColumn string) (time.Time, error) {
	if !f.HasColumn(dateColumn) {
		return time.Time{}, fmt.Errorf("date column %q not found; columns available: %v", dateColumn, f.Columns())
	}
	v := f.Value(i, dateColumn)
	if v == nil {
		return time.Time{}, fmt.Errorf("row %d: date column %q is null", i, dateColumn)
	}
	t, ok := frame.TimeValue(v)
	if !ok {
		return time.Time{}, fmt.Errorf("row %d: date column %q holds %T, not a time", i, dateColumn, v)
	}
	return t, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
