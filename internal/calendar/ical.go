package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// ProductID identifies calendars produced by the bot
const ProductID = "-//Krunchbot//Calendar//EN"

// ToVEvent converts an event to an iCalendar VEVENT
func ToVEvent(e domain.Event, stamp time.Time) *ical.Event {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, e.ID)
	vevent.Props.SetText(ical.PropSummary, e.Summary)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	status := "CONFIRMED"
	if e.IsCancelled() {
		status = "CANCELLED"
	}
	vevent.Props.SetText(ical.PropStatus, status)
	return vevent
}

// NewCalendar wraps events into a VCALENDAR
func NewCalendar(events []domain.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	for _, e := range events {
		cal.Children = append(cal.Children, ToVEvent(e, stamp).Component)
	}
	return cal
}

// FromCalendar extracts events from every VEVENT in cal.
// Events without a UID or start are skipped.
func FromCalendar(cal *ical.Calendar) []domain.Event {
	var out []domain.Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		e, ok := fromComponent(comp)
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func fromComponent(comp *ical.Component) (domain.Event, bool) {
	var e domain.Event

	prop := comp.Props.Get(ical.PropUID)
	if prop == nil || prop.Value == "" {
		return e, false
	}
	e.ID = prop.Value

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		e.Summary = prop.Value
	}

	prop = comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return e, false
	}
	start, err := prop.DateTime(time.UTC)
	if err != nil {
		return e, false
	}
	e.Start = start

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if end, err := prop.DateTime(time.UTC); err == nil {
			e.End = end
		}
	}
	if e.End.IsZero() {
		e.End = e.Start.Add(time.Hour)
	}

	e.Status = domain.StatusConfirmed
	if prop := comp.Props.Get(ical.PropStatus); prop != nil && prop.Value == "CANCELLED" {
		e.Status = domain.StatusCancelled
	}
	return e, true
}

// Encode serializes cal to iCalendar text
func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
