package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the event backing medium is unreachable or misconfigured.
	ErrStoreUnavailable = errors.New("event store unavailable")
	// ErrForecastUnavailable means the weather fetch failed or returned no hourly timeline.
	ErrForecastUnavailable = errors.New("forecast unavailable")
	// ErrNoForecastData means the forecast had no samples inside the requested window.
	ErrNoForecastData = errors.New("no forecast data for window")
	// ErrValidation means user input was malformed.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound means a removal matched no events.
	ErrNotFound = errors.New("not found")
	// ErrTooFarAhead means the requested forecast day is beyond the forecast horizon.
	ErrTooFarAhead = errors.New("forecast day too far ahead")
	// ErrNoSinks means an announcement had nowhere to go.
	ErrNoSinks = errors.New("no notification sinks configured")
)

// StoreError tags err as a store failure while keeping the cause inspectable
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}

// ForecastError tags err as a forecast failure while keeping the cause inspectable
func ForecastError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrForecastUnavailable, err))
}
