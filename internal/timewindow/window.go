package timewindow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidClock = errors.New("invalid time of day")

// Clock is a time of day in seconds since local midnight.
type Clock int

const day = Clock(24 * 60 * 60)

// ParseClock accepts "HH:MM" or "HH:MM:SS". "24:00" is the end of the day,
// as Postgres allows for a TIME column.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" || s == "24:00:00" {
		return day, nil
	}

	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return ClockOf(t), nil
}

// ClockOf returns the wall-clock time of t in its own location.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	return Clock(h*3600 + m*60 + s)
}

// String formats the clock as HH:MM:SS, the form Postgres accepts for a time literal.
func (c Clock) String() string {
	c = ((c % day) + day) % day
	return fmt.Sprintf("%02d:%02d:%02d", c/3600, (c%3600)/60, c%60)
}

// Window is a daily opening window. When Close is earlier than Open the
// window wraps past midnight, e.g. 18:00-02:00.
type Window struct {
	Open  Clock
	Close Clock
}

// Parse builds a Window from two clock strings.
func Parse(open, close string) (Window, error) {
	o, err := ParseClock(open)
	if err != nil {
		return Window{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return Window{}, err
	}
	return Window{Open: o, Close: c}, nil
}

// Overnight reports whether the window crosses midnight.
func (w Window) Overnight() bool {
	return w.Close < w.Open
}

// Contains reports whether c falls inside the window, bounds included.
func (w Window) Contains(c Clock) bool {
	if w.Overnight() {
		return c >= w.Open || c <= w.Close
	}
	return c >= w.Open && c <= w.Close
}

// OpenAt is Contains for a concrete instant in the window's location.
func (w Window) OpenAt(t time.Time) bool {
	return w.Contains(ClockOf(t))
}
