package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/calendar"
	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/storage"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clock12     = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s?(AM|PM)$`)
	clock24     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// NewEvent is the raw input of an add-event request
type NewEvent struct {
	Summary   string
	Date      string // YYYY-MM-DD
	StartTime string // h:mm AM/PM or HH:MM
	EndTime   string
	Weekly    bool
}

// Listing is what calendar-list shows
type Listing struct {
	Now      []domain.Event
	Upcoming []domain.Event
}

// IsEmpty returns true if there is nothing to list
func (l Listing) IsEmpty() bool {
	return len(l.Now) == 0 && len(l.Upcoming) == 0
}

// CalendarService reads and mutates the event calendar through a store
type CalendarService struct {
	store storage.EventStore
	loc   *time.Location
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewCalendarService creates a new calendar service
func NewCalendarService(store storage.EventStore, loc *time.Location, now func() time.Time, log logrus.FieldLogger) *CalendarService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		store: store,
		loc:   loc,
		now:   now,
		log:   logger.ForComponent(log, "calendar"),
	}
}

// Location returns the zone used for local dates and weekdays
func (s *CalendarService) Location() *time.Location {
	return s.loc
}

// ParseDateTime combines a YYYY-MM-DD date and a clock time in loc
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if !datePattern.MatchString(date) {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, date)
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", domain.ErrValidation, date, err)
	}

	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

func parseClock(clock string) (int, int, error) {
	if m := clock12.FindStringSubmatch(clock); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: time %q out of range", domain.ErrValidation, clock)
		}
		pm := strings.EqualFold(m[3], "PM")
		switch {
		case pm && hour != 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
		return hour, minute, nil
	}

	if m := clock24.FindStringSubmatch(clock); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: time %q out of range", domain.ErrValidation, clock)
		}
		return hour, minute, nil
	}

	return 0, 0, fmt.Errorf("%w: time %q is not hh:mm AM/PM", domain.ErrValidation, clock)
}

// AddEvent validates the input, expands weekly series, rejects duplicate
// ids and saves the calendar. It returns the events that were added.
func (s *CalendarService) AddEvent(ctx context.Context, in NewEvent) ([]domain.Event, error) {
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: summary is required", domain.ErrValidation)
	}

	start, err := ParseDateTime(in.Date, in.StartTime, s.loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseDateTime(in.Date, in.EndTime, s.loc)
	if err != nil {
		return nil, err
	}

	template := domain.Event{
		ID:      domain.NewEventID(summary, s.now()),
		Summary: summary,
		Start:   start,
		End:     end,
		Status:  domain.StatusConfirmed,
	}
	if err := template.Validate(); err != nil {
		return nil, err
	}

	added := []domain.Event{template}
	if in.Weekly {
		if added, err = calendar.ExpandWeekly(template, calendar.WeeklyOccurrences); err != nil {
			return nil, fmt.Errorf("expand weekly: %w", err)
		}
	}

	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(events))
	for _, e := range events {
		existing[e.ID] = true
	}
	for _, e := range added {
		if existing[e.ID] {
			return nil, fmt.Errorf("%w: event id %q already exists", domain.ErrValidation, e.ID)
		}
	}

	if err := s.store.SaveAll(ctx, append(events, added...)); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"summary": summary,
		"start":   start,
		"events":  len(added),
	}).Info("Added event")
	return added, nil
}

// Remove deletes events named summary, optionally restricted to a
// YYYY-MM-DD date. It returns domain.ErrNotFound when nothing matched.
func (s *CalendarService) Remove(ctx context.Context, summary, date string, removeAll bool) (int, error) {
	var day *time.Time
	if date = strings.TrimSpace(date); date != "" {
		if !datePattern.MatchString(date) {
			return 0, fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, date)
		}
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return 0, fmt.Errorf("%w: date %q: %v", domain.ErrValidation, date, err)
		}
		day = &d
	}

	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	res := calendar.RemoveBySummary(events, summary, day, removeAll)
	if res.Removed == 0 {
		return 0, fmt.Errorf("%w: no %q events", domain.ErrNotFound, summary)
	}

	if err := s.store.SaveAll(ctx, res.Remaining); err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{"summary": summary, "removed": res.Removed}).Info("Removed events")
	return res.Removed, nil
}

// Events returns every stored event
func (s *CalendarService) Events(ctx context.Context) ([]domain.Event, error) {
	return s.store.LoadAll(ctx)
}

// ActiveNow returns the events in progress
func (s *CalendarService) ActiveNow(ctx context.Context) ([]domain.Event, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.ActiveAt(events, s.now()), nil
}

// Upcoming returns the events that have not started yet
func (s *CalendarService) Upcoming(ctx context.Context) ([]domain.Event, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.UpcomingFrom(events, s.now()), nil
}

// ByWeekday returns the events starting on weekday
func (s *CalendarService) ByWeekday(ctx context.Context, weekday time.Weekday) ([]domain.Event, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.OnWeekday(events, weekday, s.loc), nil
}

// OnDate returns the events starting on day's local date
func (s *CalendarService) OnDate(ctx context.Context, day time.Time) ([]domain.Event, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.OnDate(events, day, s.loc), nil
}

// MeetingOn finds the meeting on day's date. An empty summary matches
// the first event of the day. It returns nil when there is none.
func (s *CalendarService) MeetingOn(ctx context.Context, day time.Time, summary string) (*domain.Event, error) {
	events, err := s.OnDate(ctx, day)
	if err != nil {
		return nil, err
	}
	return pickMeeting(events, summary), nil
}

func pickMeeting(events []domain.Event, summary string) *domain.Event {
	for _, e := range events {
		if summary == "" || e.Summary == summary {
			return &e
		}
	}
	return nil
}

// ListForDisplay returns current and upcoming events with weekly series collapsed
func (s *CalendarService) ListForDisplay(ctx context.Context) (Listing, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return Listing{}, err
	}
	now := s.now()
	return Listing{
		Now:      calendar.ActiveAt(events, now),
		Upcoming: calendar.CollapseRecurrences(calendar.UpcomingFrom(events, now)),
	}, nil
}
