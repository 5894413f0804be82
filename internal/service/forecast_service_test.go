package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
)

func TestTargetDate(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		day     string
		want    time.Time
		wantErr error
	}{
		{"today", monday, "", time.Date(2024, 6, 10, 0, 0, 0, 0, edt), nil},
		{"same weekday", monday, "Monday", time.Date(2024, 6, 10, 0, 0, 0, 0, edt), nil},
		{"later this week", monday, "friday", time.Date(2024, 6, 14, 0, 0, 0, 0, edt), nil},
		{"five days out", monday, "saturday", time.Date(2024, 6, 15, 0, 0, 0, 0, edt), nil},
		{"six days out", monday, "sunday", time.Time{}, domain.ErrTooFarAhead},
		{"after the meeting", time.Date(2024, 6, 10, 20, 0, 0, 0, edt), "", time.Date(2024, 6, 11, 0, 0, 0, 0, edt), nil},
		{"unknown day", monday, "someday", time.Time{}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.now)
			got, err := f.forecast.TargetDate(tt.day)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || !got.Equal(tt.want) {
				t.Fatalf("TargetDate(%q) = %v, %v; want %v", tt.day, got, err, tt.want)
			}
		})
	}
}

func TestForDayDefaultWindow(t *testing.T) {
	f := newFixture(monday)
	f.weather.samples = hourlySamples(
		time.Date(2024, 6, 10, 12, 0, 0, 0, edt),
		time.Date(2024, 6, 10, 23, 0, 0, 0, edt),
		72, 15,
	)

	r, err := f.forecast.ForDay(context.Background(), "")
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	if r.Meeting != nil {
		t.Error("no meeting is stored, report should not carry one")
	}
	if r.Window.Start.Hour() != 17 || r.Window.End.Hour() != 20 {
		t.Errorf("window = %v - %v", r.Window.Start, r.Window.End)
	}
	if len(r.Blocks) != 1 || r.Blocks[0].AvgTemperature != 72 || r.Blocks[0].Label != "5:00 PM" {
		t.Errorf("blocks = %+v", r.Blocks)
	}
	if got := testutil.ToFloat64(f.metrics.WeatherFetches.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("weather fetches = %v", got)
	}
}

func TestForDayUsesStoredMeeting(t *testing.T) {
	f := newFixture(monday)
	start := time.Date(2024, 6, 10, 13, 0, 0, 0, edt)
	f.store.events = []domain.Event{{ID: "m", Summary: "Robotics Meeting", Start: start, End: start.Add(6 * time.Hour)}}
	f.weather.samples = hourlySamples(start, start.Add(6*time.Hour), 65, 45)

	r, err := f.forecast.ForDay(context.Background(), "monday")
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	if r.Meeting == nil || r.Meeting.ID != "m" {
		t.Fatalf("meeting = %+v", r.Meeting)
	}
	if len(r.Blocks) != 3 {
		t.Fatalf("a six hour meeting should give 3 blocks, got %d", len(r.Blocks))
	}
	if r.Blocks[0].Label != "1:00 PM" || r.Blocks[1].Label != "4:00 PM" || r.Blocks[2].Label != "7:00 PM" {
		t.Errorf("labels = %q %q %q", r.Blocks[0].Label, r.Blocks[1].Label, r.Blocks[2].Label)
	}
}

func TestForDayStoreDownFallsBack(t *testing.T) {
	f := newFixture(monday)
	f.store.loadErr = domain.StoreError("load mem", errors.New("offline"))
	f.weather.samples = hourlySamples(
		time.Date(2024, 6, 10, 17, 0, 0, 0, edt),
		time.Date(2024, 6, 10, 20, 0, 0, 0, edt),
		80, 70,
	)

	r, err := f.forecast.ForDay(context.Background(), "")
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	if len(r.Blocks) != 1 {
		t.Errorf("blocks = %+v", r.Blocks)
	}
}

func TestForDayNoData(t *testing.T) {
	f := newFixture(monday)
	f.weather.samples = hourlySamples(
		time.Date(2024, 6, 10, 17, 0, 0, 0, edt),
		time.Date(2024, 6, 10, 20, 0, 0, 0, edt),
		70, 0,
	)

	_, err := f.forecast.ForDay(context.Background(), "friday")
	if !errors.Is(err, domain.ErrNoForecastData) {
		t.Fatalf("err = %v, want ErrNoForecastData", err)
	}
}

func TestForDayTooFarSkipsFetch(t *testing.T) {
	f := newFixture(monday)

	_, err := f.forecast.ForDay(context.Background(), "sunday")
	if !errors.Is(err, domain.ErrTooFarAhead) {
		t.Fatalf("err = %v", err)
	}
	if f.weather.calls != 0 {
		t.Errorf("weather fetched %d times", f.weather.calls)
	}
}

func TestForDayFetchFails(t *testing.T) {
	f := newFixture(monday)
	f.weather.err = domain.ForecastError("fetch forecast", errors.New("timeout"))

	_, err := f.forecast.ForDay(context.Background(), "")
	if !errors.Is(err, domain.ErrForecastUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.WeatherFetches.WithLabelValues(metrics.ResultError)); got != 1 {
		t.Errorf("failed fetches = %v", got)
	}
}

func TestRenderForecast(t *testing.T) {
	r := &domain.ForecastReport{
		Date: time.Date(2024, 6, 10, 0, 0, 0, 0, edt),
		Blocks: []domain.ReportBlock{
			{Label: "5:00 PM", Start: time.Date(2024, 6, 10, 17, 0, 0, 0, edt), AvgTemperature: 72, AvgRain: 15},
		},
	}

	e := RenderForecast(r, edt, "imperial")
	if e.Title != "Robotics Weather Forecast" || e.Description != "Weather forecast for 6/10/2024" {
		t.Errorf("header = %q / %q", e.Title, e.Description)
	}
	if e.Color != domain.EmbedColor || e.Footer != domain.EmbedFooter || e.Thumbnail != domain.EmbedThumbnail {
		t.Error("embed is missing the brand fields")
	}
	if len(e.Fields) != 1 {
		t.Fatalf("fields = %+v", e.Fields)
	}
	if got := e.Fields[0]; got.Name != "5:00 PM 🕔" || got.Value != "Temp: 72°F 😎\n15% ☀️" || !got.Inline {
		t.Errorf("field = %+v", got)
	}

	r.Blocks[0].AvgTemperature = 22
	if got := RenderForecast(r, edt, "metric").Fields[0].Value; got != "Temp: 22°C 😎\n15% ☀️" {
		t.Errorf("metric field = %q", got)
	}
}
