package storage

import (
	"context"
	"errors"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/calendar"
	"github.com/elhs-robotics/krunchbot/internal/clients/caldav"
	"github.com/elhs-robotics/krunchbot/internal/domain"
)

const (
	// seriesLookBehind and seriesLookAhead bound recurring event expansion
	seriesLookBehind = 31 * 24 * time.Hour
	seriesLookAhead  = 366 * 24 * time.Hour
	// seriesEditMargin keeps SaveAll off instances near the window edges,
	// so a load up to this long before the save saw every instance it edits
	seriesEditMargin = 24 * time.Hour
)

// CalendarCollection is the CalDAV calendar the store reads and writes
type CalendarCollection interface {
	IsConfigured() bool
	CalendarPath() string
	SetCalendarPath(path string)
	DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error)
	QueryEvents(ctx context.Context) ([]caldav.Object, error)
	PutObject(ctx context.Context, path string, cal *ical.Calendar) error
	RemoveObject(ctx context.Context, path string) error
	ObjectPath(uid string) string
}

// CalDAVStore keeps events in a CalDAV calendar. Plain events are one
// object each; recurring events are expanded around now and edited in
// place through EXDATEs and overrides.
type CalDAVStore struct {
	client CalendarCollection
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewCalDAVStore creates a store backed by the client's calendar collection
func NewCalDAVStore(client CalendarCollection, log logrus.FieldLogger) *CalDAVStore {
	return &CalDAVStore{
		client: client,
		log:    log.WithField("store", "caldav"),
		now:    time.Now,
	}
}

func (s *CalDAVStore) Name() string { return "caldav" }

// ResolveCalendar picks the first discovered calendar when none is configured
func (s *CalDAVStore) ResolveCalendar(ctx context.Context) error {
	if s.client.CalendarPath() != "" {
		return nil
	}

	cals, err := s.client.DiscoverCalendars(ctx)
	if err != nil {
		return domain.StoreError("discover calendars", err)
	}
	if len(cals) == 0 {
		return domain.StoreError("discover calendars", errors.New("no calendars found"))
	}

	for _, c := range cals {
		s.log.WithFields(logrus.Fields{"path": c.Path, "name": c.DisplayName}).Info("Found calendar")
	}
	s.client.SetCalendarPath(cals[0].Path)
	s.log.WithField("path", cals[0].Path).Info("Using first calendar, set CALDAV_CALENDAR to choose another")
	return nil
}

func (s *CalDAVStore) LoadAll(ctx context.Context) ([]domain.Event, error) {
	if !s.client.IsConfigured() {
		return nil, domain.StoreError("load caldav", errors.New("CalDAV credentials not set"))
	}

	objects, err := s.client.QueryEvents(ctx)
	if err != nil {
		return nil, domain.StoreError("load caldav", err)
	}

	now := s.now()
	from, to := now.Add(-seriesLookBehind), now.Add(seriesLookAhead)

	events := make([]domain.Event, 0, len(objects))
	for _, obj := range objects {
		if series := calendar.SeriesOf(obj.Data); series != nil {
			for _, inst := range series.Instances(from, to) {
				events = append(events, inst.Event)
			}
			continue
		}
		events = append(events, calendar.FromCalendar(obj.Data)...)
	}
	calendar.SortByStart(events)
	return events, nil
}

type objectWrite struct {
	path string
	cal  *ical.Calendar
}

// SaveAll writes only what differs from the calendar: changed objects are
// put back at their own path, new events get a new object and objects with
// nothing left are removed. A failure part way leaves the calendar
// partially updated.
func (s *CalDAVStore) SaveAll(ctx context.Context, events []domain.Event) error {
	if !s.client.IsConfigured() {
		return domain.StoreError("save caldav", errors.New("CalDAV credentials not set"))
	}

	existing, err := s.client.QueryEvents(ctx)
	if err != nil {
		return domain.StoreError("save caldav", err)
	}

	want := make(map[string]domain.Event, len(events))
	for _, e := range events {
		want[e.ID] = e
	}

	now := s.now()
	from := now.Add(-seriesLookBehind + seriesEditMargin)
	to := now.Add(seriesLookAhead - seriesEditMargin)

	claimed := make(map[string]bool, len(events))
	var puts []objectWrite
	var removes []string

	for _, obj := range existing {
		if series := calendar.SeriesOf(obj.Data); series != nil {
			alive := false
			for id := range want {
				if series.Owns(id) {
					claimed[id] = true
					alive = true
				}
			}
			switch {
			case !alive && len(series.Instances(from, to)) > 0:
				removes = append(removes, obj.Path)
			case !alive:
				// no instance near now, left as is
			case series.Reconcile(want, from, to, now):
				puts = append(puts, objectWrite{obj.Path, series.Calendar()})
			}
			continue
		}

		stored := calendar.FromCalendar(obj.Data)
		if len(stored) == 0 {
			continue
		}
		var kept []domain.Event
		changed := false
		for _, e := range stored {
			w, ok := want[e.ID]
			if !ok {
				changed = true
				continue
			}
			claimed[e.ID] = true
			kept = append(kept, w)
			if !w.Equal(e) {
				changed = true
			}
		}
		switch {
		case len(kept) == 0:
			removes = append(removes, obj.Path)
		case changed:
			puts = append(puts, objectWrite{obj.Path, calendar.NewCalendar(kept, now)})
		}
	}

	for _, e := range events {
		if claimed[e.ID] {
			continue
		}
		claimed[e.ID] = true
		puts = append(puts, objectWrite{s.client.ObjectPath(e.ID), calendar.NewCalendar([]domain.Event{e}, now)})
	}

	for _, w := range puts {
		if err := s.client.PutObject(ctx, w.path, w.cal); err != nil {
			return domain.StoreError("save caldav", err)
		}
	}
	for _, path := range removes {
		if err := s.client.RemoveObject(ctx, path); err != nil {
			return domain.StoreError("save caldav", err)
		}
	}

	s.log.WithFields(logrus.Fields{"put": len(puts), "removed": len(removes)}).Debug("Calendar synced")
	return nil
}
