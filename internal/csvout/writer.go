// Package csvout persists datasets as CSV files named after the station
// and group they hold, the storage side of a flushing acquisition.
package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

// dateLayout is how date cells are rendered, matching the service's own
// CSV output.
const dateLayout = "2006-01-02 15:04:05"

// Writer writes datasets to <Dir>/[<Prefix>_]<destName>[_<first>_<last>].csv.
// The destination name already carries the station name and group id with
// spaces replaced by underscores; Writer only adds its own decorations.
// Dir must already exist — directory creation is the caller's job.
type Writer struct {
	// Dir is the output directory; the working directory when empty.
	Dir string

	// Prefix, when non-empty, is prepended to every file name.
	Prefix string

	// DateColumn, when non-empty, names a date column whose min/max
	// (as YYYY-MM-DD) are appended to the file name.
	DateColumn string
}

// Write stores one dataset under the destination name, satisfying the
// acquisition engine's Sink.
func (w *Writer) Write(data *frame.Frame, destName string) error {
	if data == nil {
		return fmt.Errorf("no dataset given to write")
	}

	name := destName
	if w.Prefix != "" {
		name = w.Prefix + "_" + name
	}
	if w.DateColumn != "" && data.HasColumn(w.DateColumn) {
		if first, last, ok := dateRange(data, w.DateColumn); ok {
			name = name + "_" + first + "_" + last
		}
	}

	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name+".csv")

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	cols := data.Columns()
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}

	record := make([]string, len(cols))
	for i := 0; i < data.NumRows(); i++ {
		for j, col := range cols {
			record[j] = cellText(data.Value(i, col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d to %s: %w", i, path, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// dateRange returns the min and max of a date column as YYYY-MM-DD
// strings. Cells may be time.Time or strings in the service's layouts.
func dateRange(data *frame.Frame, column string) (first, last string, ok bool) {
	var min, max time.Time
	for i := 0; i < data.NumRows(); i++ {
		t, isTime := frame.TimeValue(data.Value(i, column))
		if !isTime {
			s, isStr := data.Value(i, column).(string)
			if !isStr {
				continue
			}
			var err error
			if t, err = time.Parse(dateLayout, s); err != nil {
				if t, err = time.Parse("2006-01-02", s); err != nil {
					continue
				}
			}
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
	if !ok {
		return "", "", false
	}
	return min.Format("2006-01-02"), max.Format("2006-01-02"), true
}

// cellText renders a cell for CSV output; null cells become empty fields.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(dateLayout)
	default:
		return fmt.Sprint(val)
	}
}
