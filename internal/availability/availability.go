// Package availability evaluates candidate intervals against a recurring
// weekly schedule.
//
// Times of day are handled as minutes since local midnight. Only the start
// day selects the windows that apply. The end of an interval is measured
// from the midnight of that start day rather than by the end instant's own
// time of day, so an interval that runs past midnight ends after 24:00 and
// no window can contain it: 23:30-00:30 is rejected even by a 00:00-24:00
// window. Comparing each instant's time of day alone would accept it,
// because 00:30 sorts before 24:00.
package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var (
	ErrInvalidDay    = errors.New("dow must be between 0 and 6")
	ErrInvalidTime   = errors.New("time must be HH:MM")
	ErrInvalidWindow = errors.New("window start must be before end")
)

// Window is one open period on a day of week (0 = Sunday).
type Window struct {
	Dow   int    `json:"dow"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Rule is the full weekly schedule. A nil Rule means "no rule configured".
type Rule []Window

// Parse decodes a stored rule. Malformed input yields nil, which IsWithin
// treats as always available.
func Parse(raw []byte) Rule {
	if len(raw) == 0 {
		return nil
	}

	var rule Rule
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil
	}
	if rule == nil {
		return nil
	}
	if err := Validate(rule); err != nil {
		return nil
	}

	return rule
}

// Validate checks every window of the rule.
func Validate(rule Rule) error {
	for i, w := range rule {
		if w.Dow < 0 || w.Dow > 6 {
			return fmt.Errorf("window %d: %w", i, ErrInvalidDay)
		}
		start, err := ParseClock(w.Start)
		if err != nil {
			return fmt.Errorf("window %d start: %w", i, err)
		}
		end, err := ParseClock(w.End)
		if err != nil {
			return fmt.Errorf("window %d end: %w", i, err)
		}
		if start >= end {
			return fmt.Errorf("window %d: %w", i, ErrInvalidWindow)
		}
	}

	return nil
}

// ParseClock converts "HH:MM" into minutes since midnight. "24:00" is
// accepted so a window can run to the end of the day.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, ErrInvalidTime
	}

	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, ErrInvalidTime
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, ErrInvalidTime
	}

	if hour == 24 && minute == 0 {
		return minutesPerDay, nil
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidTime
	}

	return hour*60 + minute, nil
}

// IsWithin reports whether [start, end) fits inside at least one window
// for the weekday of start in loc.
func IsWithin(rule Rule, start, end time.Time, loc *time.Location) bool {
	if rule == nil {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}

	local := start.In(loc)
	startMin := local.Hour()*60 + local.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())

	for _, w := range rule {
		if time.Weekday(w.Dow) != local.Weekday() {
			continue
		}

		ws, err := ParseClock(w.Start)
		if err != nil {
			continue
		}
		we, err := ParseClock(w.End)
		if err != nil {
			continue
		}

		if ws <= startMin && endMin <= we {
			return true
		}
	}

	return false
}
