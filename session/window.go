package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // trading windows name IANA zones
)

// ErrInvalidWindow is returned for unparsable or empty trading windows.
var ErrInvalidWindow = errors.New("invalid trading window")

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour, Minute, Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// On returns t on the calendar day of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, loc)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: bad time of day %q", ErrInvalidWindow, s)
}

// Window is the daily trading window [Start, End) in Location.
// Windows do not cross midnight.
type Window struct {
	Start    TimeOfDay
	End      TimeOfDay
	Location *time.Location
}

// ParseWindow builds a Window from config strings. An empty timezone means UTC.
func ParseWindow(start, end, timezone string) (Window, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, err
	}
	loc := time.UTC
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return Window{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidWindow, timezone, err)
		}
	}
	w := Window{Start: s, End: e, Location: loc}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w.Start.seconds() >= w.End.seconds() {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Bounds returns the window start and end on the calendar day of t.
func (w Window) Bounds(t time.Time) (time.Time, time.Time) {
	return w.Start.On(t, w.loc()), w.End.On(t, w.loc())
}

// Contains reports whether t falls inside [Start, End) on its own day.
func (w Window) Contains(t time.Time) bool {
	start, end := w.Bounds(t)
	return !t.Before(start) && t.Before(end)
}

// Day returns midnight of t's calendar day in the window location.
func (w Window) Day(t time.Time) time.Time {
	y, m, d := t.In(w.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.loc())
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s %s", w.Start, w.End, w.loc())
}
