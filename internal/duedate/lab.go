package duedate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" or "HH:MM:SS"; seconds are ignored.
func ParseClock(value string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid clock %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", value)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MostRecentWeeklyOccurrence returns the start instant of the latest weekly meeting
// on weekday at clock (wall time in loc) that is strictly before the given instant.
func MostRecentWeeklyOccurrence(before time.Time, weekday time.Weekday, clock Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	local := before.In(loc)
	back := (int(local.Weekday()) - int(weekday) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()-back, clock.Hour, clock.Minute, 0, 0, loc)
	if !candidate.Before(before) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()-back-7, clock.Hour, clock.Minute, 0, 0, loc)
	}

	return candidate
}

// LatestBefore picks the latest instant strictly before the bound.
func LatestBefore(starts []time.Time, before time.Time) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, start := range starts {
		if !start.Before(before) {
			continue
		}
		if !found || start.After(latest) {
			latest = start
			found = true
		}
	}
	return latest, found
}
