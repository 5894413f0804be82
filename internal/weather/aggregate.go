package weather

import (
	"math"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// Meetings longer than LongMeeting are reported in LongMeetingBlocks blocks
const (
	LongMeeting       = 3 * time.Hour
	LongMeetingBlocks = 3
)

// Default meeting windows when no event is stored for the day
const (
	weekdayStartHour = 17
	weekdayEndHour   = 20
	weekendStartHour = 10
	weekendEndHour   = 19
)

// DefaultWindow returns the usual meeting time for day's date:
// 17:00-20:00 on weekdays, 10:00-19:00 on weekends.
func DefaultWindow(day time.Time, loc *time.Location) domain.ForecastWindow {
	midnight := domain.StartOfDay(day, loc)
	startHour, endHour := weekdayStartHour, weekdayEndHour
	if wd := midnight.Weekday(); wd == time.Saturday || wd == time.Sunday {
		startHour, endHour = weekendStartHour, weekendEndHour
	}
	return domain.ForecastWindow{
		Start: time.Date(midnight.Year(), midnight.Month(), midnight.Day(), startHour, 0, 0, 0, loc),
		End:   time.Date(midnight.Year(), midnight.Month(), midnight.Day(), endHour, 0, 0, 0, loc),
	}
}

// BlockCountFor returns how many report blocks a window is split into
func BlockCountFor(w domain.ForecastWindow) int {
	if w.Span() > LongMeeting {
		return LongMeetingBlocks
	}
	return 1
}

// FilterToWindow keeps samples with start <= time <= end
func FilterToWindow(samples []domain.ForecastSample, w domain.ForecastWindow) []domain.ForecastSample {
	out := make([]domain.ForecastSample, 0)
	for _, s := range samples {
		if s.Time.Before(w.Start) || s.Time.After(w.End) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// AggregateBlocks splits samples into blockCount contiguous chunks of
// ceil(len/blockCount) samples and averages each one. Empty chunks are
// skipped, so no samples means no blocks.
func AggregateBlocks(samples []domain.ForecastSample, blockCount int, loc *time.Location) []domain.ReportBlock {
	if len(samples) == 0 || blockCount <= 0 {
		return nil
	}

	size := (len(samples) + blockCount - 1) / blockCount
	blocks := make([]domain.ReportBlock, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		lo := i * size
		if lo >= len(samples) {
			break
		}
		hi := min(lo+size, len(samples))
		chunk := samples[lo:hi]

		var temp, rain float64
		for _, s := range chunk {
			temp += s.Temperature
			rain += s.PrecipitationProbability
		}
		n := float64(len(chunk))
		blocks = append(blocks, domain.ReportBlock{
			Label:          chunk[0].Time.In(loc).Format("3:04 PM"),
			Start:          chunk[0].Time,
			AvgTemperature: roundHalfUp(temp / n),
			AvgRain:        roundHalfUp(rain / n),
		})
	}
	return blocks
}

// roundHalfUp rounds .5 towards positive infinity
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// TemperatureEmoji maps a temperature in °F to its display emoji
func TemperatureEmoji(temp int) string {
	switch {
	case temp >= 80:
		return "🥵"
	case temp >= 70:
		return "😎"
	case temp >= 50:
		return "🥶"
	default:
		return "❄️"
	}
}

// RainEmoji maps a precipitation probability in percent to its display emoji
func RainEmoji(rain int) string {
	switch {
	case rain >= 70:
		return "🌧️"
	case rain >= 40:
		return "🌦️"
	case rain >= 20:
		return "🌥️"
	default:
		return "☀️"
	}
}

var clockEmojis = []string{"🕛", "🕐", "🕑", "🕒", "🕓", "🕔", "🕕", "🕖", "🕗", "🕘", "🕙", "🕚"}

// ClockEmoji returns the clock face for the hour of t
func ClockEmoji(t time.Time) string {
	return clockEmojis[t.Hour()%12]
}
