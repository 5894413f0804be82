package calendar

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// WeeklyOccurrences is how many weeks a weekly event is materialized for (about a year).
const WeeklyOccurrences = 52

// OccurrenceID names the n-th occurrence (from 1) of the series base
func OccurrenceID(base string, n int) string {
	return fmt.Sprintf("%s-week%d", base, n)
}

// ExpandWeekly materializes occurrences copies of template, one week apart.
// Start times keep their wall-clock time in the template's location, end
// times keep the template's duration, and IDs get a "-week<N>" suffix.
func ExpandWeekly(template domain.Event, occurrences int) ([]domain.Event, error) {
	if occurrences <= 0 {
		return nil, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   occurrences,
		Dtstart: template.Start,
	})
	if err != nil {
		return nil, fmt.Errorf("build weekly rule: %w", err)
	}

	duration := template.Duration()
	starts := rule.All()

	out := make([]domain.Event, 0, len(starts))
	for i, start := range starts {
		occ := template
		occ.ID = OccurrenceID(template.ID, i+1)
		occ.Start = start
		occ.End = start.Add(duration)
		out = append(out, occ)
	}
	return out, nil
}
