package calendar

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// maxSeriesScan caps how many occurrences of one rule are walked
const maxSeriesScan = 5000

// Instance is one occurrence of a recurring event
type Instance struct {
	Event domain.Event
	// RecurrenceID is the start the rule gives this occurrence,
	// before any override moves it
	RecurrenceID time.Time
}

// Series is a calendar object holding one recurring event: the RRULE
// master and the RECURRENCE-ID overrides sharing its UID. Instances are
// named OccurrenceID(UID, n), n counting from DTSTART with EXDATEs
// keeping their number.
type Series struct {
	UID    string
	cal    *ical.Calendar
	master *ical.Component
}

// SeriesOf returns the recurring event in cal, or nil when cal only
// holds plain events
func SeriesOf(cal *ical.Calendar) *Series {
	var s *Series
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		isMaster := comp.Props.Get(ical.PropRecurrenceRule) != nil
		isOverride := comp.Props.Get(ical.PropRecurrenceID) != nil
		if !isMaster && !isOverride {
			continue
		}
		uid := comp.Props.Get(ical.PropUID)
		if uid == nil || uid.Value == "" {
			continue
		}
		if s == nil {
			s = &Series{UID: uid.Value, cal: cal}
		}
		if isMaster && !isOverride && uid.Value == s.UID {
			s.master = comp
		}
	}
	return s
}

// Calendar returns the object, including any changes made by Reconcile
func (s *Series) Calendar() *ical.Calendar {
	return s.cal
}

// Owns reports whether id names an instance of the series
func (s *Series) Owns(id string) bool {
	if id == s.UID {
		return true
	}
	if s.master == nil {
		return strings.HasPrefix(id, s.UID+"@")
	}
	base, ok := WeeklyBase(id)
	return ok && base == s.UID
}

// Instances expands the series for occurrences starting inside [from, to].
// EXDATEs are dropped and overrides replace the occurrence they name. A
// master whose rule cannot be read is returned once under its UID.
func (s *Series) Instances(from, to time.Time) []Instance {
	if s.master == nil {
		return s.orphanInstances(from, to)
	}

	base, ok := fromComponent(s.master)
	if !ok {
		return nil
	}
	rule, err := s.rule(base.Start)
	if err != nil {
		return []Instance{{Event: base, RecurrenceID: base.Start}}
	}

	loc := base.Start.Location()
	exdates := exceptionDates(s.master, loc)
	overrides := s.overrides(loc)
	duration := base.Duration()

	var out []Instance
	next := rule.Iterator()
	for n := 1; n <= maxSeriesScan; n++ {
		start, ok := next()
		if !ok || start.After(to) {
			break
		}
		if start.Before(from) || excluded(exdates, start) {
			continue
		}

		occ := base
		occ.ID = OccurrenceID(s.UID, n)
		occ.Start, occ.End = start, start.Add(duration)
		if comp, ok := overrides[start.Unix()]; ok {
			if o, ok := fromComponent(comp); ok {
				o.ID = occ.ID
				occ = o
			}
		}
		out = append(out, Instance{Event: occ, RecurrenceID: start})
	}
	return out
}

// Reconcile edits the series so its instances inside [from, to] match
// want: a missing instance becomes an EXDATE, a changed one an override.
// It reports whether the object changed.
func (s *Series) Reconcile(want map[string]domain.Event, from, to, stamp time.Time) bool {
	if s.master == nil {
		return false
	}

	changed := false
	for _, inst := range s.Instances(from, to) {
		if inst.Event.ID == s.UID {
			continue
		}
		w, ok := want[inst.Event.ID]
		switch {
		case !ok:
			s.exclude(inst.RecurrenceID)
			changed = true
		case !w.Equal(inst.Event):
			s.override(inst.RecurrenceID, w, stamp)
			changed = true
		}
	}
	return changed
}

func (s *Series) rule(dtstart time.Time) (*rrule.RRule, error) {
	prop := s.master.Props.Get(ical.PropRecurrenceRule)
	if prop == nil {
		return nil, errors.New("no RRULE")
	}
	opt, err := rrule.StrToROptionInLocation(prop.Value, dtstart.Location())
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

// overrides maps the unix time of each RECURRENCE-ID to its VEVENT
func (s *Series) overrides(loc *time.Location) map[int64]*ical.Component {
	out := make(map[int64]*ical.Component)
	for _, comp := range s.cal.Children {
		if rid, ok := s.recurrenceID(comp, loc); ok {
			out[rid.Unix()] = comp
		}
	}
	return out
}

func (s *Series) recurrenceID(comp *ical.Component, loc *time.Location) (time.Time, bool) {
	if comp.Name != ical.CompEvent {
		return time.Time{}, false
	}
	if uid := comp.Props.Get(ical.PropUID); uid == nil || uid.Value != s.UID {
		return time.Time{}, false
	}
	prop := comp.Props.Get(ical.PropRecurrenceID)
	if prop == nil {
		return time.Time{}, false
	}
	rid, err := prop.DateTime(loc)
	if err != nil {
		return time.Time{}, false
	}
	return rid, true
}

// orphanInstances returns overrides stored without their master
func (s *Series) orphanInstances(from, to time.Time) []Instance {
	var out []Instance
	for _, comp := range s.cal.Children {
		rid, ok := s.recurrenceID(comp, time.UTC)
		if !ok || rid.Before(from) || rid.After(to) {
			continue
		}
		e, ok := fromComponent(comp)
		if !ok {
			continue
		}
		e.ID = s.UID + "@" + rid.UTC().Format("20060102T150405Z")
		out = append(out, Instance{Event: e, RecurrenceID: rid})
	}
	return out
}

func (s *Series) dropOverride(rid time.Time) {
	s.cal.Children = slices.DeleteFunc(s.cal.Children, func(comp *ical.Component) bool {
		t, ok := s.recurrenceID(comp, rid.Location())
		return ok && t.Equal(rid)
	})
}

func (s *Series) exclude(rid time.Time) {
	s.dropOverride(rid)
	prop := ical.NewProp(ical.PropExceptionDates)
	prop.SetDateTime(rid)
	s.master.Props.Add(prop)
}

func (s *Series) override(rid time.Time, e domain.Event, stamp time.Time) {
	s.dropOverride(rid)
	vevent := ToVEvent(e, stamp)
	vevent.Props.SetText(ical.PropUID, s.UID)
	prop := ical.NewProp(ical.PropRecurrenceID)
	prop.SetDateTime(rid)
	vevent.Props.Set(prop)
	s.cal.Children = append(s.cal.Children, vevent.Component)
}

type exdate struct {
	at       time.Time
	dateOnly bool
}

// exceptionDates reads every EXDATE value, including comma separated lists
func exceptionDates(comp *ical.Component, loc *time.Location) []exdate {
	var out []exdate
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		for _, v := range strings.Split(prop.Value, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			single := prop
			single.Value = v
			t, err := single.DateTime(loc)
			if err != nil {
				continue
			}
			out = append(out, exdate{at: t, dateOnly: !strings.Contains(v, "T")})
		}
	}
	return out
}

func excluded(exdates []exdate, start time.Time) bool {
	for _, ex := range exdates {
		if ex.dateOnly {
			if domain.SameDate(ex.at, start, start.Location()) {
				return true
			}
			continue
		}
		if ex.at.Equal(start) {
			return true
		}
	}
	return false
}
