package calendar

import (
	"fmt"
	"testing"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

func meeting(id string, start time.Time, d time.Duration) domain.Event {
	return domain.Event{
		ID:      id,
		Summary: "Robotics Meeting",
		Start:   start,
		End:     start.Add(d),
		Status:  domain.StatusConfirmed,
	}
}

func TestExpandWeekly(t *testing.T) {
	loc := time.FixedZone("EDT", -4*3600)
	tmpl := meeting("Robotics_Meeting_1", time.Date(2024, 6, 10, 17, 0, 0, 0, loc), 3*time.Hour)

	got, err := ExpandWeekly(tmpl, WeeklyOccurrences)
	if err != nil {
		t.Fatalf("ExpandWeekly: %v", err)
	}
	if len(got) != 52 {
		t.Fatalf("got %d occurrences, want 52", len(got))
	}

	for i, e := range got {
		wantStart := tmpl.Start.AddDate(0, 0, 7*i)
		if !e.Start.Equal(wantStart) {
			t.Errorf("occurrence %d start = %v, want %v", i, e.Start, wantStart)
		}
		if !e.End.Equal(tmpl.End.AddDate(0, 0, 7*i)) {
			t.Errorf("occurrence %d end = %v", i, e.End)
		}
		if want := fmt.Sprintf("Robotics_Meeting_1-week%d", i+1); e.ID != want {
			t.Errorf("occurrence %d id = %q, want %q", i, e.ID, want)
		}
		if e.Summary != tmpl.Summary || e.Status != tmpl.Status {
			t.Errorf("occurrence %d lost template fields: %+v", i, e)
		}
		if i > 0 && !e.Start.After(got[i-1].Start) {
			t.Errorf("occurrence %d does not start after %d", i, i-1)
		}
	}
}

func TestExpandWeeklyKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// four weeks before the November DST change
	tmpl := meeting("m", time.Date(2024, 10, 14, 17, 0, 0, 0, loc), 3*time.Hour)
	got, err := ExpandWeekly(tmpl, 6)
	if err != nil {
		t.Fatalf("ExpandWeekly: %v", err)
	}
	for i, e := range got {
		local := e.Start.In(loc)
		if local.Hour() != 17 || local.Minute() != 0 {
			t.Errorf("occurrence %d starts at %s local", i, local.Format("15:04"))
		}
		if e.Duration() != 3*time.Hour {
			t.Errorf("occurrence %d lasts %v", i, e.Duration())
		}
	}
}

func TestExpandWeeklyNonPositive(t *testing.T) {
	tmpl := meeting("m", time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC), time.Hour)
	for _, n := range []int{0, -3} {
		got, err := ExpandWeekly(tmpl, n)
		if err != nil || len(got) != 0 {
			t.Errorf("ExpandWeekly(%d) = %v, %v", n, got, err)
		}
	}
}
