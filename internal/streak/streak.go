// Package streak advances daily learning streaks on a fixed-offset calendar.
package streak

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/weboryskills/practice/internal/domain"
)

// Defaults for the reference calendar
const (
	DefaultOffset    = "+05:30"
	DefaultTolerance = 25 * time.Hour
	DefaultBonus     = 10
)

// Transition names what happened to a streak on one award
type Transition string

const (
	SameDay   Transition = "same_day"
	Continued Transition = "continued"
	Reset     Transition = "reset"
)

// Calendar decides day boundaries for streaks.
// All users share one fixed offset; there is no per-user timezone.
type Calendar struct {
	Location  *time.Location
	Tolerance time.Duration
	Bonus     int
}

// DefaultCalendar returns the UTC+05:30 calendar with a 25h tolerance
func DefaultCalendar() Calendar {
	loc, _ := ParseOffset(DefaultOffset)
	return Calendar{
		Location:  loc,
		Tolerance: DefaultTolerance,
		Bonus:     DefaultBonus,
	}
}

// ParseOffset turns "+05:30", "-0800" or "Z" into a fixed zone
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || strings.EqualFold(s, "UTC") {
		return time.UTC, nil
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("utc offset %q: must start with + or -", s)
	}

	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 4 && len(body) != 2 {
		return nil, fmt.Errorf("utc offset %q: want ±HH:MM", s)
	}
	hours, err := strconv.Atoi(body[:2])
	if err != nil {
		return nil, fmt.Errorf("utc offset %q: %w", s, err)
	}
	minutes := 0
	if len(body) == 4 {
		if minutes, err = strconv.Atoi(body[2:]); err != nil {
			return nil, fmt.Errorf("utc offset %q: %w", s, err)
		}
	}
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("utc offset %q: out of range", s)
	}

	return time.FixedZone("UTC"+s, sign*(hours*3600+minutes*60)), nil
}

// Day truncates t to midnight in the calendar location
func (c Calendar) Day(t time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Advance applies one awarded session at now to the streak.
//
// At most one advance happens per calendar day. A last active day exactly
// one day back (within Tolerance of today's midnight) continues the streak;
// anything older, or no previous activity, resets it to 1. The bonus is
// only granted when a continued streak is longer than one day.
func (c Calendar) Advance(s domain.Streak, now time.Time) (domain.Streak, int, Transition) {
	today := c.Day(now)

	if s.LastActiveDate != nil {
		lastDay := c.Day(*s.LastActiveDate)
		// A last active date in the future counts as today.
		if !lastDay.Before(today) {
			return s, 0, SameDay
		}
	}

	tr := Reset
	next := domain.Streak{Count: 1}
	if s.LastActiveDate != nil {
		gap := today.Sub(c.Day(*s.LastActiveDate))
		if gap > 0 && gap <= c.tolerance() {
			tr = Continued
			next.Count = s.Count + 1
		}
	}

	bonus := 0
	if next.Count > 1 {
		bonus = c.Bonus
	}

	at := now
	next.LastActiveDate = &at
	return next, bonus, tr
}

func (c Calendar) tolerance() time.Duration {
	if c.Tolerance <= 0 {
		return DefaultTolerance
	}
	return c.Tolerance
}
