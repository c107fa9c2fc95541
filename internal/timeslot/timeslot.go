package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60

	// HourStep is the grid used for operating hours and pricing.
	HourStep = 60
	// BookingStep is the grid bookings start on and last for.
	BookingStep = 30
)

var ErrInvalidTimeFormat = errors.New("invalid time format")

// Parse converts a 24-hour "HH:MM" clock string into minutes since midnight.
// A single-digit hour ("9:05") is accepted; signs and spaces inside are not.
func Parse(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return hour*60 + minute, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Format renders minutes as zero-padded "HH:MM". Values outside a day wrap
// around midnight.
func Format(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Slots returns clock labels from start up to and including end, stepping by
// step minutes.
func Slots(start, end string, step int) ([]string, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, err
	}
	e, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %d", step)
	}
	var out []string
	for m := s; m <= e; m += step {
		out = append(out, Format(m))
	}
	return out, nil
}

// PriceSlots returns the start label of every whole hour that fits between
// start and end. An 08:00-20:00 window yields 08:00 through 19:00.
func PriceSlots(start, end string) ([]string, error) {
	labels, err := Slots(start, end, HourStep)
	if err != nil {
		return nil, err
	}
	e, _ := Parse(end)
	out := labels[:0]
	for _, l := range labels {
		m, _ := Parse(l)
		if m+HourStep <= e {
			out = append(out, l)
		}
	}
	return out, nil
}

// RoundUp snaps minutes to the next multiple of step.
func RoundUp(minutes, step int) int {
	if step <= 0 {
		return minutes
	}
	r := minutes % step
	if r == 0 {
		return minutes
	}
	if r < 0 {
		return minutes - r
	}
	return minutes + step - r
}

// Clock is the source of wall-clock time.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the host clock in a fixed location, usually the academy's.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

// Today is the calendar day of now in now's own location. Deriving it from a
// UTC instant would roll the date early for zones west of UTC.
func Today(now time.Time) Date {
	return DateOf(now)
}

// NowMinutes is the wall-clock minute of the day of now.
func NowMinutes(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// IsPast reports whether date at minute is strictly before now.
func IsPast(date Date, minute int, now time.Time) bool {
	today := Today(now)
	switch c := date.Compare(today); {
	case c < 0:
		return true
	case c > 0:
		return false
	}
	return minute < NowMinutes(now)
}
