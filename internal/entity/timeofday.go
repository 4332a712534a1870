package entity

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseDate validates a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// ParseClock validates wall-clock time "HH:MM" and returns minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalidInput, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// LocalStart собирает дату и время в момент в часовом поясе бизнеса.
func LocalStart(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), mins/60, mins%60, 0, 0, loc), nil
}
