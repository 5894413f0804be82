package tomorrow

import "time"

// ForecastResponse is the body of GET /v4/weather/forecast
type ForecastResponse struct {
	Timelines Timelines `json:"timelines"`
	Location  Location  `json:"location"`
}

// Timelines holds the forecast series per timestep
type Timelines struct {
	Hourly []Interval `json:"hourly"`
	Daily  []Interval `json:"daily"`
}

// Interval is one forecast step
type Interval struct {
	Time   time.Time `json:"time"`
	Values Values    `json:"values"`
}

// Values are the measurements we read from each step; the API sends many more
type Values struct {
	Temperature              *float64 `json:"temperature,omitempty"`
	TemperatureAvg           *float64 `json:"temperatureAvg,omitempty"`
	PrecipitationProbability *float64 `json:"precipitationProbability,omitempty"`
	PrecipitationProbAvg     *float64 `json:"precipitationProbabilityAvg,omitempty"`
	WeatherCode              *int     `json:"weatherCode,omitempty"`
}

// Location echoes the coordinates of the forecast
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
