package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
)

// Announcement texts
const (
	MsgNoMeeting      = "@everyone No meeting today!"
	MsgMeetingNow     = "@everyone The meeting is happening now!"
	MsgMeetingToday   = "@everyone There is a meeting today!"
	MsgNoForecastData = "No forecast data available for that time."
	MsgNoForecast     = "The weather forecast is unavailable right now."
)

// AnnouncementService computes the meeting announcement shared by the
// calendar-check command and the scheduler
type AnnouncementService struct {
	calendar       *CalendarService
	forecast       *ForecastService
	meetingSummary string
	units          string
	now            func() time.Time
	log            logrus.FieldLogger
}

// NewAnnouncementService creates a new announcement service
func NewAnnouncementService(cal *CalendarService, fc *ForecastService, meetingSummary, units string, now func() time.Time, log logrus.FieldLogger) *AnnouncementService {
	if now == nil {
		now = time.Now
	}
	return &AnnouncementService{
		calendar:       cal,
		forecast:       fc,
		meetingSummary: meetingSummary,
		units:          units,
		now:            now,
		log:            logger.ForComponent(log, "announcement"),
	}
}

// Compute resolves today's meeting and builds the announcement. A meeting
// in progress skips the weather fetch. Forecast failures become a note in
// the text; store failures are returned.
func (s *AnnouncementService) Compute(ctx context.Context) (domain.Announcement, error) {
	now := s.now()

	meeting, err := s.calendar.MeetingOn(ctx, now, s.meetingSummary)
	if err != nil {
		return domain.Announcement{}, err
	}

	if meeting == nil {
		return domain.Announcement{Content: MsgNoMeeting, MentionEveryone: true}, nil
	}

	if meeting.Contains(now) {
		return domain.Announcement{Content: MsgMeetingNow, MentionEveryone: true}, nil
	}

	date := domain.StartOfDay(now, s.calendar.Location())
	report, err := s.forecast.ForWindow(ctx, date, domain.WindowFor(*meeting))
	if err != nil {
		s.log.WithError(err).WithField("meeting", meeting.ID).Warn("Announcing without forecast")
		note := MsgNoForecast
		if errors.Is(err, domain.ErrNoForecastData) {
			note = MsgNoForecastData
		}
		return domain.Announcement{Content: MsgMeetingToday + "\n" + note, MentionEveryone: true}, nil
	}
	report.Meeting = meeting

	return domain.Announcement{
		Content:         MsgMeetingToday,
		Embed:           RenderForecast(report, s.calendar.Location(), s.units),
		MentionEveryone: true,
	}, nil
}
