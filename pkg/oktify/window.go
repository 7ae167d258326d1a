package oktify

import (
	"time"

	"github.com/hejijunhao/oktify/internal/model"
)

// Window is an inclusive range of UTC calendar dates.
type Window = model.TimeWindow

// NewWindow truncates start and end to UTC dates. It fails with
// ErrMalformedWindow when end is before start.
func NewWindow(start, end time.Time) (Window, error) {
	return model.NewTimeWindow(start, end)
}

// ParseWindow parses two YYYY-MM-DD dates.
func ParseWindow(start, end string) (Window, error) {
	return model.ParseTimeWindow(start, end)
}
