package calendar

import (
	"regexp"
	"sort"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// WeeklySuffix is appended to the summary of a collapsed weekly series
const WeeklySuffix = " _(Weekly)_"

var weeklyIDPattern = regexp.MustCompile(`^(.+)-week\d+$`)

// WeeklyBase returns the series ID of a weekly occurrence
func WeeklyBase(id string) (string, bool) {
	m := weeklyIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// filterSorted keeps non-cancelled events matching keep, ordered by start
func filterSorted(events []domain.Event, keep func(domain.Event) bool) []domain.Event {
	out := make([]domain.Event, 0)
	for _, e := range events {
		if e.IsCancelled() || !keep(e) {
			continue
		}
		out = append(out, e)
	}
	SortByStart(out)
	return out
}

// SortByStart orders events ascending by start, keeping store order for ties
func SortByStart(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// ActiveAt returns the events in progress at now
func ActiveAt(events []domain.Event, now time.Time) []domain.Event {
	return filterSorted(events, func(e domain.Event) bool {
		return e.Contains(now)
	})
}

// UpcomingFrom returns the events starting at or after now
func UpcomingFrom(events []domain.Event, now time.Time) []domain.Event {
	return filterSorted(events, func(e domain.Event) bool {
		return !e.Start.Before(now)
	})
}

// OnWeekday returns the events whose local start falls on weekday
func OnWeekday(events []domain.Event, weekday time.Weekday, loc *time.Location) []domain.Event {
	return filterSorted(events, func(e domain.Event) bool {
		return e.Start.In(loc).Weekday() == weekday
	})
}

// OnDate returns the events whose local start falls on day's calendar date
func OnDate(events []domain.Event, day time.Time, loc *time.Location) []domain.Event {
	return filterSorted(events, func(e domain.Event) bool {
		return domain.SameDate(e.Start, day, loc)
	})
}

// CollapseRecurrences keeps only the first occurrence of every weekly
// series, marking its summary as weekly. Events are copied, never mutated.
func CollapseRecurrences(events []domain.Event) []domain.Event {
	seen := make(map[string]bool)
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		base, ok := WeeklyBase(e.ID)
		if ok {
			if seen[base] {
				continue
			}
			seen[base] = true
			e.Summary += WeeklySuffix
		}
		out = append(out, e)
	}
	return out
}

// RemoveResult is the outcome of RemoveBySummary
type RemoveResult struct {
	Remaining []domain.Event
	Removed   int
}

// RemoveBySummary drops events whose summary equals summary exactly and,
// when date is non-nil, whose start shares date's UTC calendar date.
// Without removeAll only the first match in store order is dropped.
func RemoveBySummary(events []domain.Event, summary string, date *time.Time, removeAll bool) RemoveResult {
	matches := func(e domain.Event) bool {
		if e.Summary != summary {
			return false
		}
		if date == nil {
			return true
		}
		return domain.SameDate(e.Start, *date, time.UTC)
	}

	res := RemoveResult{Remaining: make([]domain.Event, 0, len(events))}
	for _, e := range events {
		if matches(e) && (removeAll || res.Removed == 0) {
			res.Removed++
			continue
		}
		res.Remaining = append(res.Remaining, e)
	}
	return res
}
