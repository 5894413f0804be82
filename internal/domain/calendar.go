package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventStatus is the lifecycle state of a calendar event
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusCancelled EventStatus = "cancelled"
)

// isoLayout matches the millisecond UTC timestamps already stored in the calendar file
const isoLayout = "2006-01-02T15:04:05.000Z"

// Event is a single dated calendar entry. Weekly series are stored as
// independent events whose IDs end in "-week<N>".
type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
	Status  EventStatus
}

// IsCancelled returns true if the event was cancelled
func (e Event) IsCancelled() bool {
	return e.Status == StatusCancelled
}

// Equal reports whether e and o hold the same stored fields. An empty
// status counts as confirmed.
func (e Event) Equal(o Event) bool {
	return e.ID == o.ID &&
		e.Summary == o.Summary &&
		e.Start.Equal(o.Start) &&
		e.End.Equal(o.End) &&
		e.IsCancelled() == o.IsCancelled()
}

// Contains reports whether t falls inside [Start, End]
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && !t.After(e.End)
}

// Duration returns the length of the event
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// FormatTime returns the local time range for display
func (e Event) FormatTime(loc *time.Location) string {
	return e.Start.In(loc).Format("3:04 PM") + " - " + e.End.In(loc).Format("3:04 PM")
}

// FormatDateTime returns the local start date and time
func (e Event) FormatDateTime(loc *time.Location) string {
	return e.Start.In(loc).Format("Jan 2, 2006, 03:04 PM")
}

// Validate checks the invariants every stored event must hold
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: event id is empty", ErrValidation)
	}
	if strings.TrimSpace(e.Summary) == "" {
		return fmt.Errorf("%w: event summary is empty", ErrValidation)
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: event end must be after start", ErrValidation)
	}
	return nil
}

type eventJSON struct {
	ID      string      `json:"id"`
	Summary string      `json:"summary"`
	Start   string      `json:"start"`
	End     string      `json:"end"`
	Status  EventStatus `json:"status,omitempty"`
}

// MarshalJSON writes the {id, summary, start, end, status} record with UTC millisecond timestamps
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(eventJSON{
		ID:      e.ID,
		Summary: e.Summary,
		Start:   e.Start.UTC().Format(isoLayout),
		End:     e.End.UTC().Format(isoLayout),
		Status:  e.Status,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON accepts any RFC 3339 timestamp
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339Nano, raw.Start)
	if err != nil {
		return fmt.Errorf("event %q: parse start: %w", raw.ID, err)
	}
	end, err := time.Parse(time.RFC3339Nano, raw.End)
	if err != nil {
		return fmt.Errorf("event %q: parse end: %w", raw.ID, err)
	}
	*e = Event{
		ID:      raw.ID,
		Summary: raw.Summary,
		Start:   start,
		End:     end,
		Status:  raw.Status,
	}
	return nil
}

// NewEventID builds an ID from the summary and creation instant
func NewEventID(summary string, at time.Time) string {
	return strings.Join(strings.Fields(summary), "_") + "_" + fmt.Sprint(at.UnixMilli())
}
