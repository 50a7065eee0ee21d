// README: Day keys (DD-MM-YYYY) used by the terminal archive and the daily report counters.
package types

import (
	"fmt"
	"time"
)

const DayLayout = "02-01-2006"

// Day formats t in loc as DD-MM-YYYY.
func Day(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayLayout)
}

// ParseDay accepts DD-MM-YYYY and returns midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want DD-MM-YYYY", s)
	}
	return t, nil
}

// Clock lets services stamp transitions deterministically in tests.
type Clock func() time.Time
