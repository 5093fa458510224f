package geomet

import (
	"testing"
	"time"
)

func TestIntervalExpression(t *testing.T) {
	day1 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2010, 6, 15, 12, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		iv   *Interval
		want string
	}{
		{"nil means no constraint", nil, ""},
		{"single instant", Instant(day1), "2000-01-01T00:00:00"},
		{"closed range", Range(day1, day2), "2000-01-01T00:00:00/2010-06-15T12:30:00"},
		{"open end", Since(day1), "2000-01-01T00:00:00/.."},
		{"open start", Until(day2), "../2010-06-15T12:30:00"},
		{"raw passthrough", RawExpression("2000-01-01T00:00:00/2001-01-01T00:00:00"), "2000-01-01T00:00:00/2001-01-01T00:00:00"},
	}
	for _, tc := range cases {
		if got := tc.iv.Expression(); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
