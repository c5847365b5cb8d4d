package training

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type WindowKind string

const (
	WindowAllTime    WindowKind = "all"
	WindowYearToDate WindowKind = "ytd"
	WindowLastNDays  WindowKind = "days"
)

type Window struct {
	Kind WindowKind `json:"kind"`
	Days int        `json:"days,omitempty"`
}

func AllTime() Window {
	return Window{Kind: WindowAllTime}
}

func YearToDate() Window {
	return Window{Kind: WindowYearToDate}
}

func LastNDays(n int) Window {
	return Window{Kind: WindowLastNDays, Days: n}
}

func (w Window) String() string {
	if w.Kind == WindowLastNDays {
		return fmt.Sprintf("%dd", w.Days)
	}
	return string(w.Kind)
}

// ParseWindow accepts "all", "ytd" and "<n>d" (e.g. "28d"). Empty means all time.
func ParseWindow(raw string) (Window, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", "all", "alltime", "all-time":
		return AllTime(), nil
	case "ytd", "year", "yeartodate":
		return YearToDate(), nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
	if err != nil || n <= 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
	return LastNDays(n), nil
}

// Filter returns the records inside the window as a new slice; records is never modified.
// LastNDays includes today and the n-1 days before it.
func Filter(records []WorkoutRecord, w Window, now time.Time) []WorkoutRecord {
	return filter(records, w, now, false)
}

// FilterWholeWeeks is Filter with a LastNDays cutoff moved back to the Monday of
// its week, so the first weekly bucket is never a partial one.
func FilterWholeWeeks(records []WorkoutRecord, w Window, now time.Time) []WorkoutRecord {
	return filter(records, w, now, true)
}

func filter(records []WorkoutRecord, w Window, now time.Time, wholeWeeks bool) []WorkoutRecord {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	keep := func(WorkoutRecord) bool { return true }

	switch w.Kind {
	case WindowYearToDate:
		keep = func(r WorkoutRecord) bool {
			return r.Date.Year() == today.Year()
		}
	case WindowLastNDays:
		if w.Days <= 0 {
			return []WorkoutRecord{}
		}
		cutoff := today.AddDate(0, 0, -(w.Days - 1))
		if wholeWeeks {
			cutoff = WeekStart(cutoff)
		}
		keep = func(r WorkoutRecord) bool {
			return !r.Date.Before(cutoff)
		}
	}

	filtered := make([]WorkoutRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
