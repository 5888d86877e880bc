package entities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeInterval is a half-open [Start, End) window within a day, "HH:MM".
// End may be "24:00" to run to midnight.
type TimeInterval struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// DaySchedule is the set of opening intervals for one weekday
type DaySchedule struct {
	Enabled   bool           `json:"enabled" yaml:"enabled"`
	Intervals []TimeInterval `json:"intervals" yaml:"intervals"`
}

// WorkingHours maps lowercase weekday names ("monday") to schedules.
// A nil table means the geofence is always open; a weekday missing from a
// non-nil table is closed.
type WorkingHours map[string]DaySchedule

// IsOpenAt reports whether t, already converted to the geofence's local
// time zone, falls inside an enabled interval.
func (w WorkingHours) IsOpenAt(t time.Time) bool {
	if w == nil {
		return true
	}

	day, ok := w[weekdayKey(t.Weekday())]
	if !ok || !day.Enabled {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	for _, iv := range day.Intervals {
		start, end, err := iv.bounds()
		if err != nil {
			continue
		}
		if minute >= start && minute < end {
			return true
		}
	}
	return false
}

// Validate checks interval syntax, ordering and overlap
func (w WorkingHours) Validate() error {
	for day, schedule := range w {
		if _, ok := weekdayByKey[day]; !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}

		type span struct{ start, end int }
		spans := make([]span, 0, len(schedule.Intervals))
		for _, iv := range schedule.Intervals {
			start, end, err := iv.bounds()
			if err != nil {
				return fmt.Errorf("%s: %w", day, err)
			}
			if start >= end {
				return fmt.Errorf("%s: interval %s-%s must end after it starts", day, iv.Start, iv.End)
			}
			spans = append(spans, span{start, end})
		}

		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				return fmt.Errorf("%s: overlapping intervals", day)
			}
		}
	}
	return nil
}

// Clone returns a deep copy
func (w WorkingHours) Clone() WorkingHours {
	if w == nil {
		return nil
	}
	out := make(WorkingHours, len(w))
	for day, schedule := range w {
		out[day] = DaySchedule{
			Enabled:   schedule.Enabled,
			Intervals: append([]TimeInterval(nil), schedule.Intervals...),
		}
	}
	return out
}

var errBadClock = errors.New("time must be HH:MM")

func (iv TimeInterval) bounds() (int, int, error) {
	start, err := parseClock(iv.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(iv.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseClock converts "HH:MM" into minutes after midnight, accepting "24:00".
func parseClock(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadClock, v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

var weekdayByKey = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func weekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}
