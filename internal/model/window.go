package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format accepted for window bounds.
const DateLayout = "2006-01-02"

// TimeWindow is an inclusive range of calendar dates, interpreted in UTC.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow truncates start and end to UTC dates and checks start <= end.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: truncateDate(start), End: truncateDate(end)}
	if w.End.Before(w.Start) {
		return TimeWindow{}, fmt.Errorf("%w: end %s is before start %s",
			ErrMalformedWindow, w.End.Format(DateLayout), w.Start.Format(DateLayout))
	}
	return w, nil
}

// ParseTimeWindow parses two YYYY-MM-DD dates into a window.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: start: %v", ErrMalformedWindow, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: end: %v", ErrMalformedWindow, err)
	}
	return NewTimeWindow(s, e)
}

// Since is the first instant of the window (start date, 00:00:00.000 UTC).
func (w TimeWindow) Since() time.Time {
	return w.Start
}

// Until is the last millisecond of the window (end date, 23:59:59.999 UTC).
func (w TimeWindow) Until() time.Time {
	return w.End.Add(24*time.Hour - time.Millisecond)
}

// Contains reports whether t falls within [Since, Until].
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Since()) && !t.After(w.Until())
}

func (w TimeWindow) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
