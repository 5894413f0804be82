package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

func testEvents() []domain.Event {
	edt := time.FixedZone("EDT", -4*3600)
	start := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	return []domain.Event{
		{ID: "late", Summary: "Robotics Meeting", Start: start.AddDate(0, 0, 7), End: start.AddDate(0, 0, 7).Add(3 * time.Hour), Status: domain.StatusConfirmed},
		{ID: "early", Summary: "Build <Day> & Co", Start: start, End: start.Add(time.Hour)},
	}
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "krunchbot.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreEmpty(t *testing.T) {
	s := newSQLiteStore(t)

	events, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("LoadAll on empty store = %#v", events)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	want := testEvents()

	if err := s.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	assertSameEvents(t, got, want)

	// saving what was loaded changes nothing
	if err := s.SaveAll(ctx, got); err != nil {
		t.Fatalf("second SaveAll: %v", err)
	}
	again, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("second LoadAll: %v", err)
	}
	assertSameEvents(t, again, want)
}

func TestSQLiteStoreReplaces(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	if err := s.SaveAll(ctx, testEvents()); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := s.SaveAll(ctx, testEvents()[1:]); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != "early" {
		t.Fatalf("got %+v", got)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "krunchbot.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.SaveAll(ctx, testEvents()); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	s.Close()

	// migrations must tolerate an existing schema
	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	assertSameEvents(t, got, testEvents())
}

func assertSameEvents(t *testing.T, got, want []domain.Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Summary != w.Summary || g.Status != w.Status {
			t.Errorf("event %d = %+v, want %+v", i, g, w)
		}
		if !g.Start.Equal(w.Start) || !g.End.Equal(w.End) {
			t.Errorf("event %d times = %v - %v, want %v - %v", i, g.Start, g.End, w.Start, w.End)
		}
	}
}
