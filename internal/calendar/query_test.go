package calendar

import (
	"testing"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

var edt = time.FixedZone("EDT", -4*3600)

func ids(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func equalIDs(t *testing.T, got []domain.Event, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got ids %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got ids %v, want %v", g, want)
		}
	}
}

func sampleEvents() []domain.Event {
	day := func(d, h int) time.Time { return time.Date(2024, 6, d, h, 0, 0, 0, edt) }

	cancelled := meeting("cancelled", day(10, 17), 3*time.Hour)
	cancelled.Status = domain.StatusCancelled

	return []domain.Event{
		meeting("late", day(12, 17), time.Hour),  // Wednesday
		meeting("now", day(10, 17), 3*time.Hour), // Monday
		cancelled,
		meeting("early", day(9, 10), 2*time.Hour), // Sunday
		meeting("later-today", day(10, 21), time.Hour),
	}
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2024, 6, 10, 18, 0, 0, 0, edt)
	equalIDs(t, ActiveAt(sampleEvents(), now), "now")
}

func TestUpcomingFrom(t *testing.T) {
	now := time.Date(2024, 6, 10, 18, 0, 0, 0, edt)
	equalIDs(t, UpcomingFrom(sampleEvents(), now), "later-today", "late")
}

func TestUpcomingIncludesEventStartingNow(t *testing.T) {
	now := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	equalIDs(t, UpcomingFrom(sampleEvents(), now), "now", "later-today", "late")
}

func TestOnWeekday(t *testing.T) {
	equalIDs(t, OnWeekday(sampleEvents(), time.Monday, edt), "now", "later-today")
	equalIDs(t, OnWeekday(sampleEvents(), time.Sunday, edt), "early")
	equalIDs(t, OnWeekday(sampleEvents(), time.Friday, edt))
}

func TestOnWeekdayUsesLocalZone(t *testing.T) {
	// 22:00 Monday in EDT is 02:00 Tuesday UTC
	e := meeting("m", time.Date(2024, 6, 10, 22, 0, 0, 0, edt), time.Hour)
	equalIDs(t, OnWeekday([]domain.Event{e}, time.Monday, edt), "m")
	equalIDs(t, OnWeekday([]domain.Event{e}, time.Tuesday, time.UTC), "m")
}

func TestOnDate(t *testing.T) {
	day := time.Date(2024, 6, 10, 8, 0, 0, 0, edt)
	equalIDs(t, OnDate(sampleEvents(), day, edt), "now", "later-today")
}

func TestCancelledNeverListed(t *testing.T) {
	events := sampleEvents()
	now := time.Date(2024, 6, 10, 17, 30, 0, 0, edt)

	for name, got := range map[string][]domain.Event{
		"active":   ActiveAt(events, now),
		"upcoming": UpcomingFrom(events, time.Date(2024, 6, 1, 0, 0, 0, 0, edt)),
		"weekday":  OnWeekday(events, time.Monday, edt),
		"date":     OnDate(events, now, edt),
	} {
		for _, e := range got {
			if e.IsCancelled() {
				t.Errorf("%s returned cancelled event %s", name, e.ID)
			}
		}
	}
}

func TestSortByStartIsStable(t *testing.T) {
	at := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	events := []domain.Event{
		meeting("b", at, time.Hour),
		meeting("a", at, time.Hour),
		meeting("first", at.Add(-time.Hour), time.Hour),
	}
	SortByStart(events)
	equalIDs(t, events, "first", "b", "a")
}

func TestCollapseRecurrences(t *testing.T) {
	start := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	tmpl := meeting("A", start, time.Hour)
	series, err := ExpandWeekly(tmpl, 5)
	if err != nil {
		t.Fatalf("ExpandWeekly: %v", err)
	}
	b := meeting("B", start.Add(24*time.Hour), time.Hour)
	b.Summary = "Build Day"

	input := append(append([]domain.Event{}, series...), b)
	got := CollapseRecurrences(input)

	equalIDs(t, got, "A-week1", "B")
	if got[0].Summary != "Robotics Meeting"+WeeklySuffix {
		t.Errorf("weekly summary = %q", got[0].Summary)
	}
	if got[1].Summary != "Build Day" {
		t.Errorf("plain summary = %q", got[1].Summary)
	}
	if input[0].Summary != "Robotics Meeting" {
		t.Error("CollapseRecurrences mutated its input")
	}
}

func TestWeeklyBase(t *testing.T) {
	tests := []struct {
		id     string
		base   string
		weekly bool
	}{
		{"Robotics_Meeting_1718-week12", "Robotics_Meeting_1718", true},
		{"a-week-week3", "a-week", true},
		{"Robotics_Meeting_1718", "", false},
		{"-week3", "", false},
		{"x-weekly", "", false},
	}
	for _, tt := range tests {
		base, ok := WeeklyBase(tt.id)
		if ok != tt.weekly || base != tt.base {
			t.Errorf("WeeklyBase(%q) = %q, %v", tt.id, base, ok)
		}
	}
}

func TestRemoveBySummary(t *testing.T) {
	d := func(day, h int) time.Time { return time.Date(2024, 6, day, h, 0, 0, 0, time.UTC) }
	events := []domain.Event{
		meeting("x1", d(10, 17), time.Hour),
		meeting("x2", d(10, 19), time.Hour),
		meeting("x3", d(17, 17), time.Hour),
		{ID: "y", Summary: "Other", Start: d(10, 17), End: d(10, 18)},
	}
	date := d(10, 0)

	t.Run("first match only", func(t *testing.T) {
		res := RemoveBySummary(events, "Robotics Meeting", &date, false)
		if res.Removed != 1 {
			t.Fatalf("Removed = %d, want 1", res.Removed)
		}
		equalIDs(t, res.Remaining, "x2", "x3", "y")
	})

	t.Run("all matches on date", func(t *testing.T) {
		res := RemoveBySummary(events, "Robotics Meeting", &date, true)
		if res.Removed != 2 {
			t.Fatalf("Removed = %d, want 2", res.Removed)
		}
		equalIDs(t, res.Remaining, "x3", "y")
	})

	t.Run("all matches any date", func(t *testing.T) {
		res := RemoveBySummary(events, "Robotics Meeting", nil, true)
		if res.Removed != 3 {
			t.Fatalf("Removed = %d, want 3", res.Removed)
		}
		equalIDs(t, res.Remaining, "y")
	})

	t.Run("summary match is exact", func(t *testing.T) {
		res := RemoveBySummary(events, "robotics meeting", nil, true)
		if res.Removed != 0 || len(res.Remaining) != len(events) {
			t.Fatalf("case-insensitive match removed %d", res.Removed)
		}
	})

	t.Run("date compared in UTC", func(t *testing.T) {
		// 21:00 EDT on the 9th is the 10th in UTC
		late := meeting("late", time.Date(2024, 6, 9, 21, 0, 0, 0, edt), time.Hour)
		res := RemoveBySummary([]domain.Event{late}, "Robotics Meeting", &date, false)
		if res.Removed != 1 {
			t.Fatalf("Removed = %d, want 1", res.Removed)
		}
	})

	if len(events) != 4 || events[0].ID != "x1" {
		t.Error("RemoveBySummary mutated its input")
	}
}

func TestAddThenQueryMonday(t *testing.T) {
	start := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	e := meeting("Robotics_Meeting_1", start, 3*time.Hour)

	got := OnWeekday([]domain.Event{e}, time.Monday, edt)
	equalIDs(t, got, "Robotics_Meeting_1")

	now := time.Date(2024, 6, 10, 18, 0, 0, 0, edt)
	equalIDs(t, ActiveAt([]domain.Event{e}, now), "Robotics_Meeting_1")
}
