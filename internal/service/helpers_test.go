package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
)

var edt = time.FixedZone("EDT", -4*3600)

// memStore is an in-memory EventStore
type memStore struct {
	mu      sync.Mutex
	events  []domain.Event
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Name() string { return "mem" }

func (s *memStore) LoadAll(context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]domain.Event{}, s.events...), nil
}

func (s *memStore) SaveAll(_ context.Context, events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.events = append([]domain.Event{}, events...)
	return nil
}

// fakeWeather returns canned samples and counts calls
type fakeWeather struct {
	samples []domain.ForecastSample
	err     error
	calls   int
}

func (f *fakeWeather) Forecast(context.Context) ([]domain.ForecastSample, error) {
	f.calls++
	return f.samples, f.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func nullLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

// hourlySamples returns one sample per hour in [from, to]
func hourlySamples(from, to time.Time, temp, rain float64) []domain.ForecastSample {
	var out []domain.ForecastSample
	for t := from; !t.After(to); t = t.Add(time.Hour) {
		out = append(out, domain.ForecastSample{Time: t, Temperature: temp, PrecipitationProbability: rain})
	}
	return out
}

type fixture struct {
	store    *memStore
	weather  *fakeWeather
	metrics  *metrics.Metrics
	calendar *CalendarService
	forecast *ForecastService
	announce *AnnouncementService
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		store:   &memStore{},
		weather: &fakeWeather{},
		metrics: metrics.New(nil),
	}
	clock := fixedClock(now)
	log := nullLogger()
	f.calendar = NewCalendarService(f.store, edt, clock, log)
	f.forecast = NewForecastService(f.weather, f.calendar, "Robotics Meeting", f.metrics, clock, log)
	f.announce = NewAnnouncementService(f.calendar, f.forecast, "Robotics Meeting", "imperial", clock, log)
	return f
}
