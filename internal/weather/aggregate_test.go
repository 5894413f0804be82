package weather

import (
	"testing"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

var edt = time.FixedZone("EDT", -4*3600)

func hourly(from time.Time, temps, rains []float64) []domain.ForecastSample {
	out := make([]domain.ForecastSample, len(temps))
	for i := range temps {
		out[i] = domain.ForecastSample{
			Time:                     from.Add(time.Duration(i) * time.Hour),
			Temperature:              temps[i],
			PrecipitationProbability: rains[i],
		}
	}
	return out
}

func TestDefaultWindow(t *testing.T) {
	tests := []struct {
		name      string
		day       time.Time
		startHour int
		endHour   int
	}{
		{"weekday", time.Date(2024, 6, 10, 9, 0, 0, 0, edt), 17, 20},
		{"saturday", time.Date(2024, 6, 15, 9, 0, 0, 0, edt), 10, 19},
		{"sunday", time.Date(2024, 6, 16, 23, 0, 0, 0, edt), 10, 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWindow(tt.day, edt)
			if w.Start.Hour() != tt.startHour || w.End.Hour() != tt.endHour {
				t.Errorf("window = %s-%s", w.Start.Format("15:04"), w.End.Format("15:04"))
			}
			if w.Start.Day() != tt.day.Day() {
				t.Errorf("window on day %d, want %d", w.Start.Day(), tt.day.Day())
			}
		})
	}
}

func TestBlockCountFor(t *testing.T) {
	start := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	for _, tt := range []struct {
		span time.Duration
		want int
	}{
		{time.Hour, 1},
		{3 * time.Hour, 1},
		{3*time.Hour + time.Minute, 3},
		{9 * time.Hour, 3},
	} {
		w := domain.ForecastWindow{Start: start, End: start.Add(tt.span)}
		if got := BlockCountFor(w); got != tt.want {
			t.Errorf("BlockCountFor(%v) = %d, want %d", tt.span, got, tt.want)
		}
	}
}

func TestFilterToWindowIsInclusive(t *testing.T) {
	start := time.Date(2024, 6, 10, 17, 0, 0, 0, edt)
	samples := hourly(start.Add(-time.Hour), []float64{1, 2, 3, 4, 5, 6}, []float64{0, 0, 0, 0, 0, 0})
	w := domain.ForecastWindow{Start: start, End: start.Add(3 * time.Hour)}

	got := FilterToWindow(samples, w)
	if len(got) != 4 {
		t.Fatalf("got %d samples, want 4", len(got))
	}
	if !got[0].Time.Equal(w.Start) || !got[3].Time.Equal(w.End) {
		t.Errorf("bounds = %v .. %v", got[0].Time, got[3].Time)
	}
}

func TestAggregateBlocksEmpty(t *testing.T) {
	if got := AggregateBlocks(nil, 3, edt); len(got) != 0 {
		t.Errorf("got %d blocks from no samples", len(got))
	}
}

func TestAggregateBlocksChunks(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, edt)
	samples := hourly(start,
		[]float64{60, 62, 64, 70, 71, 72, 80, 81},
		[]float64{10, 10, 11, 50, 50, 51, 0, 1},
	)

	got := AggregateBlocks(samples, 3, edt)
	if len(got) != 3 {
		t.Fatalf("got %d blocks, want 3", len(got))
	}

	want := []domain.ReportBlock{
		{Label: "10:00 AM", AvgTemperature: 62, AvgRain: 10},
		{Label: "1:00 PM", AvgTemperature: 71, AvgRain: 50},
		{Label: "4:00 PM", AvgTemperature: 81, AvgRain: 1},
	}
	for i, w := range want {
		g := got[i]
		if g.Label != w.Label || g.AvgTemperature != w.AvgTemperature || g.AvgRain != w.AvgRain {
			t.Errorf("block %d = %+v, want %+v", i, g, w)
		}
	}
	if !got[2].Start.Equal(samples[6].Time) {
		t.Errorf("last block starts at %v", got[2].Start)
	}
}

func TestAggregateBlocksFewerSamplesThanBlocks(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, edt)
	got := AggregateBlocks(hourly(start, []float64{70, 72}, []float64{0, 0}), 3, edt)
	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2", len(got))
	}
}

func TestRoundHalfUp(t *testing.T) {
	for in, want := range map[float64]int{
		70.5:  71,
		70.49: 70,
		-0.5:  0,
		-1.5:  -1,
		12:    12,
	} {
		if got := roundHalfUp(in); got != want {
			t.Errorf("roundHalfUp(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestTemperatureEmoji(t *testing.T) {
	for temp, want := range map[int]string{
		95: "🥵", 80: "🥵",
		79: "😎", 70: "😎",
		69: "🥶", 50: "🥶",
		49: "❄️", -5: "❄️",
	} {
		if got := TemperatureEmoji(temp); got != want {
			t.Errorf("TemperatureEmoji(%d) = %s, want %s", temp, got, want)
		}
	}
}

func TestRainEmoji(t *testing.T) {
	for rain, want := range map[int]string{
		100: "🌧️", 70: "🌧️",
		69: "🌦️", 40: "🌦️",
		39: "🌥️", 20: "🌥️",
		19: "☀️", 0: "☀️",
	} {
		if got := RainEmoji(rain); got != want {
			t.Errorf("RainEmoji(%d) = %s, want %s", rain, got, want)
		}
	}
}

func TestClockEmoji(t *testing.T) {
	if got := ClockEmoji(time.Date(2024, 6, 10, 17, 30, 0, 0, edt)); got != "🕔" {
		t.Errorf("17:30 = %s", got)
	}
	if got := ClockEmoji(time.Date(2024, 6, 10, 0, 0, 0, 0, edt)); got != "🕛" {
		t.Errorf("midnight = %s", got)
	}
}
