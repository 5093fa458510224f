package geomet

import "time"

// OpenEnded is the service's marker for an unbounded side of a datetime
// interval, as in "2000-01-01T00:00:00/..".
const OpenEnded = ".."

// isoLayout matches the timestamp form the service accepts in datetime
// expressions.
const isoLayout = "2006-01-02T15:04:05"

// Interval is a date constraint for an items request: a single instant, a
// closed range, a half-open range using the OpenEnded marker, or a raw
// pre-formatted expression used verbatim. A nil *Interval means "no date
// constraint" and formats to the empty string.
type Interval struct {
	Start time.Time
	End   time.Time

	// OpenStart / OpenEnd replace the corresponding bound with the
	// OpenEnded marker.
	OpenStart bool
	OpenEnd   bool

	// Raw, when non-empty, is an expression already in the service's
	// form and wins over the other fields.
	Raw string
}

// Instant constrains the request to a single date/time.
func Instant(t time.Time) *Interval { return &Interval{Start: t} }

// Range constrains the request to [start, end].
func Range(start, end time.Time) *Interval { return &Interval{Start: start, End: end} }

// Since constrains the request to everything at or after start.
func Since(start time.Time) *Interval { return &Interval{Start: start, OpenEnd: true} }

// Until constrains the request to everything at or before end.
func Until(end time.Time) *Interval { return &Interval{End: end, OpenStart: true} }

// RawExpression wraps an expression already in the service's accepted form.
func RawExpression(expr string) *Interval { return &Interval{Raw: expr} }

// Expression renders the interval as the single string the service
// expects: one ISO timestamp, or two terms joined by "/" where either term
// may be the OpenEnded marker. A nil receiver yields "".
func (iv *Interval) Expression() string {
	if iv == nil {
		return ""
	}
	if iv.Raw != "" {
		return iv.Raw
	}

	start := OpenEnded
	if !iv.OpenStart {
		start = iv.Start.Format(isoLayout)
	}
	end := OpenEnded
	if !iv.OpenEnd {
		end = iv.End.Format(isoLayout)
	}

	// A single instant: no end bound and no open sides.
	if !iv.OpenStart && !iv.OpenEnd && iv.End.IsZero() {
		return start
	}
	return start + "/" + end
}
