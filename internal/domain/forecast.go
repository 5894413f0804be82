package domain

import "time"

// ForecastWindow is the time range a forecast is reported for
type ForecastWindow struct {
	Start time.Time
	End   time.Time
}

// Span returns the length of the window
func (w ForecastWindow) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// WindowFor derives the forecast window from an event
func WindowFor(e Event) ForecastWindow {
	return ForecastWindow{Start: e.Start, End: e.End}
}

// ForecastSample is one hourly weather reading
type ForecastSample struct {
	Time                     time.Time
	Temperature              float64
	PrecipitationProbability float64
}

// ReportBlock is an aggregated stretch of the forecast window
type ReportBlock struct {
	Label          string
	Start          time.Time
	AvgTemperature int
	AvgRain        int
}

// ForecastReport is the outcome of a forecast for a single day
type ForecastReport struct {
	Date   time.Time
	Window ForecastWindow
	Blocks []ReportBlock
	// Meeting is set when the window came from a stored event
	Meeting *Event
}
