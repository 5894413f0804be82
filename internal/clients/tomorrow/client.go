package tomorrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

const (
	BaseURL = "https://api.tomorrow.io"

	forecastPath = "/v4/weather/forecast"
)

// Client is a Tomorrow.io forecast client
type Client struct {
	baseURL    string
	apiKey     string
	lat, lon   float64
	units      string
	httpClient *http.Client
}

// NewClient creates a new forecast client for a fixed location
func NewClient(apiKey string, lat, lon float64, units string, timeout time.Duration) *Client {
	if units == "" {
		units = "imperial"
	}
	return &Client{
		baseURL:    BaseURL,
		apiKey:     apiKey,
		lat:        lat,
		lon:        lon,
		units:      units,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBaseURL points the client at another host
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Forecast fetches the hourly forecast for the configured location
func (c *Client) Forecast(ctx context.Context) ([]domain.ForecastSample, error) {
	if !c.IsConfigured() {
		return nil, domain.ForecastError("fetch forecast", errors.New("TOMORROW_IO_API_KEY not set"))
	}

	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("location", strconv.FormatFloat(c.lat, 'f', -1, 64)+","+strconv.FormatFloat(c.lon, 'f', -1, 64))
	q.Set("units", c.units)
	q.Set("timesteps", "1h,1d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+forecastPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.ForecastError("create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.ForecastError("do request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ForecastError("read response", err)
	}

	if resp.StatusCode >= 400 {
		return nil, domain.ForecastError("fetch forecast", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body)))
	}

	var fr ForecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, domain.ForecastError("decode forecast", err)
	}

	if fr.Timelines.Hourly == nil {
		return nil, domain.ForecastError("fetch forecast", errors.New("response has no hourly timeline"))
	}

	return toSamples(fr.Timelines.Hourly), nil
}

// toSamples keeps the intervals that carry both temperature and rain probability
func toSamples(hourly []Interval) []domain.ForecastSample {
	out := make([]domain.ForecastSample, 0, len(hourly))
	for _, h := range hourly {
		if h.Values.Temperature == nil || h.Values.PrecipitationProbability == nil {
			continue
		}
		out = append(out, domain.ForecastSample{
			Time:                     h.Time,
			Temperature:              *h.Values.Temperature,
			PrecipitationProbability: *h.Values.PrecipitationProbability,
		})
	}
	return out
}
