package clock

import "time"

// Clock выдаёт текущее время в часовом поясе бизнеса. Все проверки
// "сегодня" и расчёты окон напоминаний идут через него.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

// New returns a Clock pinned to the given IANA timezone name.
// An empty or unknown name falls back to UTC.
func New(timezone string) Clock {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return &realClock{loc: loc}
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Location() *time.Location {
	return c.loc
}
