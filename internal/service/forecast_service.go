package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
	"github.com/elhs-robotics/krunchbot/internal/weather"
)

const (
	// MaxForecastDays is the furthest weekday offset a forecast is given for
	MaxForecastDays = 5
	// lateHour moves a same-day forecast to tomorrow
	lateHour = 20
)

// WeatherFetcher returns hourly forecast samples
type WeatherFetcher interface {
	Forecast(ctx context.Context) ([]domain.ForecastSample, error)
}

// ForecastService builds meeting-window weather reports
type ForecastService struct {
	weather        WeatherFetcher
	calendar       *CalendarService
	meetingSummary string
	metrics        *metrics.Metrics
	loc            *time.Location
	now            func() time.Time
	log            logrus.FieldLogger
}

// NewForecastService creates a new forecast service
func NewForecastService(w WeatherFetcher, cal *CalendarService, meetingSummary string, m *metrics.Metrics, now func() time.Time, log logrus.FieldLogger) *ForecastService {
	if now == nil {
		now = time.Now
	}
	return &ForecastService{
		weather:        w,
		calendar:       cal,
		meetingSummary: meetingSummary,
		metrics:        m,
		loc:            cal.Location(),
		now:            now,
		log:            logger.ForComponent(log, "forecast"),
	}
}

// TargetDate resolves a weekday name to the date it next falls on,
// counting today. An empty day means today, or tomorrow once the
// evening meeting is over.
func (s *ForecastService) TargetDate(day string) (time.Time, error) {
	now := s.now().In(s.loc)
	target := now.Weekday()
	if strings.TrimSpace(day) != "" {
		wd, err := domain.ParseWeekday(day)
		if err != nil {
			return time.Time{}, err
		}
		target = wd
	}

	diff := domain.DaysUntil(now.Weekday(), target)
	if diff > MaxForecastDays {
		return time.Time{}, fmt.Errorf("%w: %s is %d days away", domain.ErrTooFarAhead, target, diff)
	}
	if diff == 0 && now.Hour() >= lateHour {
		diff = 1
	}

	return domain.StartOfDay(now, s.loc).AddDate(0, 0, diff), nil
}

// ForDay builds the report for the meeting on day. The window is the
// stored meeting's when there is one, otherwise the usual meeting hours.
func (s *ForecastService) ForDay(ctx context.Context, day string) (*domain.ForecastReport, error) {
	date, err := s.TargetDate(day)
	if err != nil {
		return nil, err
	}

	window := weather.DefaultWindow(date, s.loc)
	meeting, err := s.calendar.MeetingOn(ctx, date, s.meetingSummary)
	switch {
	case err != nil:
		s.log.WithError(err).Warn("Could not read calendar, using default meeting window")
	case meeting != nil:
		window = domain.WindowFor(*meeting)
	}

	report, err := s.ForWindow(ctx, date, window)
	if report != nil {
		report.Meeting = meeting
	}
	return report, err
}

// ForWindow fetches the forecast and aggregates the samples inside window.
// It returns domain.ErrNoForecastData when none fall inside it.
func (s *ForecastService) ForWindow(ctx context.Context, date time.Time, window domain.ForecastWindow) (*domain.ForecastReport, error) {
	samples, err := s.weather.Forecast(ctx)
	s.metrics.WeatherFetches.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	inWindow := weather.FilterToWindow(samples, window)
	if len(inWindow) == 0 {
		s.log.WithFields(logrus.Fields{
			"window_start": window.Start,
			"window_end":   window.End,
			"samples":      len(samples),
		}).Info("No forecast samples inside window")
		return nil, domain.ErrNoForecastData
	}

	return &domain.ForecastReport{
		Date:   date,
		Window: window,
		Blocks: weather.AggregateBlocks(inWindow, weather.BlockCountFor(window), s.loc),
	}, nil
}

// RenderForecast turns a report into the forecast embed. Temperatures are
// shown in units ("imperial" or "metric"); emoji tiers are in °F.
func RenderForecast(r *domain.ForecastReport, loc *time.Location, units string) *domain.Embed {
	symbol, toF := "°F", func(t int) int { return t }
	if units == "metric" {
		symbol, toF = "°C", func(t int) int { return t*9/5 + 32 }
	}

	embed := &domain.Embed{
		Title:       "Robotics Weather Forecast",
		Description: "Weather forecast for " + r.Date.In(loc).Format("1/2/2006"),
		Color:       domain.EmbedColor,
		Thumbnail:   domain.EmbedThumbnail,
		Footer:      domain.EmbedFooter,
	}
	for _, b := range r.Blocks {
		embed.AddField(
			b.Label+" "+weather.ClockEmoji(b.Start.In(loc)),
			fmt.Sprintf("Temp: %d%s %s\n%d%% %s",
				b.AvgTemperature, symbol, weather.TemperatureEmoji(toF(b.AvgTemperature)),
				b.AvgRain, weather.RainEmoji(b.AvgRain)),
			true,
		)
	}
	return embed
}
