package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/calendar"
	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
	"github.com/elhs-robotics/krunchbot/internal/service"
)

// Command names
const (
	CmdCalendarAdd    = "calendar-add"
	CmdCalendarRemove = "calendar-remove"
	CmdCalendarCheck  = "calendar-check"
	CmdCalendarList   = "calendar-list"
	CmdForecast       = "forecast"
	CmdTime           = "time"
)

// maxListed caps the events shown in one embed field
const maxListed = 5

// User-facing messages
const (
	MsgInvalidEvent   = "Missing or invalid event details. Please use the format YYYY-MM-DD for date and hh:mm AM/PM for time."
	MsgAddFailed      = "Failed to add event. Please try again later."
	MsgMissingSummary = "Missing summary. Please provide it."
	MsgInvalidDate    = "Invalid date. Please use the format YYYY-MM-DD."
	MsgRemoveFailed   = "Failed to remove event. Please try again later."
	MsgCheckFailed    = "An error occurred while checking the calendar."
	MsgListFailed     = "Failed to list meetings."
	MsgNoMeetings     = "No upcoming or current meetings found."
	MsgUnknownDay     = "Unknown day. Please use a weekday name like monday."
	MsgTooFarAhead    = "That meeting is too far ahead please ask for a closer meeting date."
	MsgForecastFailed = "Failed to fetch the weather forecast. Please try again later."
	MsgKrunchTime     = "Krunch time!"
	MsgUnknownCommand = "Unknown command."
)

// Options are the slash command arguments; absent ones are zero
type Options struct {
	Day       string
	Summary   string
	Date      string
	StartTime string
	EndTime   string
	Weekly    bool
}

// Invocation is one command call, independent of the chat transport
type Invocation struct {
	Command string
	Options Options
}

// Reply is what the transport should show for an invocation
type Reply struct {
	Content         string
	Embed           *domain.Embed
	MentionEveryone bool
	// Err is the internal failure behind an error reply, for logging
	Err error
}

// Deferred reports whether a command acknowledges first and edits its
// reply once the work is done
func Deferred(command string) bool {
	return command != CmdTime
}

// Dispatcher maps command invocations to service calls and errors to user text
type Dispatcher struct {
	calendar     *service.CalendarService
	forecast     *service.ForecastService
	announcement *service.AnnouncementService
	metrics      *metrics.Metrics
	units        string
	log          logrus.FieldLogger
}

// NewDispatcher creates a new command dispatcher
func NewDispatcher(cal *service.CalendarService, fc *service.ForecastService, ann *service.AnnouncementService, m *metrics.Metrics, units string, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		calendar:     cal,
		forecast:     fc,
		announcement: ann,
		metrics:      m,
		units:        units,
		log:          logger.ForComponent(log, "dispatcher"),
	}
}

// Handle runs the command and always returns something to show
func (d *Dispatcher) Handle(ctx context.Context, inv Invocation) Reply {
	var r Reply
	switch inv.Command {
	case CmdCalendarAdd:
		r = d.calendarAdd(ctx, inv.Options)
	case CmdCalendarRemove:
		r = d.calendarRemove(ctx, inv.Options)
	case CmdCalendarCheck:
		r = d.calendarCheck(ctx, inv.Options)
	case CmdCalendarList:
		r = d.calendarList(ctx)
	case CmdForecast:
		r = d.forecastCmd(ctx, inv.Options)
	case CmdTime:
		r = Reply{Content: MsgKrunchTime}
	default:
		r = Reply{Content: MsgUnknownCommand, Err: fmt.Errorf("unknown command %q", inv.Command)}
	}

	d.metrics.Commands.WithLabelValues(inv.Command, metrics.Result(r.Err)).Inc()
	if r.Err != nil {
		d.log.WithError(r.Err).WithField("command", inv.Command).Error("Command failed")
	}
	return r
}

func (d *Dispatcher) loc() *time.Location {
	return d.calendar.Location()
}

func (d *Dispatcher) calendarAdd(ctx context.Context, o Options) Reply {
	added, err := d.calendar.AddEvent(ctx, service.NewEvent{
		Summary:   o.Summary,
		Date:      o.Date,
		StartTime: o.StartTime,
		EndTime:   o.EndTime,
		Weekly:    o.Weekly,
	})
	switch {
	case errors.Is(err, domain.ErrValidation):
		return Reply{Content: MsgInvalidEvent}
	case err != nil:
		return Reply{Content: MsgAddFailed, Err: err}
	}

	first := added[0]
	title, repeats := "Event Added!", "No"
	if o.Weekly {
		title, repeats = "Weekly Event Added!", "Weekly"
	}

	embed := &domain.Embed{
		Title:       title,
		Description: "**" + first.Summary + "**",
		Color:       domain.EmbedColor,
		Footer:      "Event successfully added to the calendar.",
	}
	embed.
		AddField("Date", first.Start.In(d.loc()).Format("1/2/2006"), true).
		AddField("Start Time", first.Start.In(d.loc()).Format("03:04 PM"), true).
		AddField("End Time", first.End.In(d.loc()).Format("03:04 PM"), true).
		AddField("Repeats", repeats, true)

	return Reply{Embed: embed}
}

func (d *Dispatcher) calendarRemove(ctx context.Context, o Options) Reply {
	summary := strings.TrimSpace(o.Summary)
	if summary == "" {
		return Reply{Content: MsgMissingSummary}
	}
	date := strings.TrimSpace(o.Date)

	_, err := d.calendar.Remove(ctx, summary, date, true)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return Reply{Content: MsgInvalidDate}
	case errors.Is(err, domain.ErrNotFound):
		if date != "" {
			return Reply{Content: fmt.Sprintf("No %q found on %s.", summary, date)}
		}
		return Reply{Content: fmt.Sprintf("No %q found.", summary)}
	case err != nil:
		return Reply{Content: MsgRemoveFailed, Err: err}
	}

	if date != "" {
		return Reply{Content: fmt.Sprintf("Removed %s from %s in the calendar.", summary, date)}
	}
	return Reply{Content: fmt.Sprintf("Removed %s from the calendar.", summary)}
}

func (d *Dispatcher) calendarCheck(ctx context.Context, o Options) Reply {
	if strings.TrimSpace(o.Day) == "" {
		a, err := d.announcement.Compute(ctx)
		d.metrics.Announcements.WithLabelValues("command", metrics.Result(err)).Inc()
		if err != nil {
			return Reply{Content: MsgCheckFailed, Err: err}
		}
		return Reply{Content: a.Content, Embed: a.Embed, MentionEveryone: a.MentionEveryone}
	}

	wd, err := domain.ParseWeekday(o.Day)
	if err != nil {
		return Reply{Content: MsgUnknownDay}
	}

	events, err := d.calendar.ByWeekday(ctx, wd)
	if err != nil {
		return Reply{Content: MsgCheckFailed, Err: err}
	}
	events = calendar.CollapseRecurrences(events)
	if len(events) == 0 {
		return Reply{Content: fmt.Sprintf("No meetings found on %s.", wd)}
	}

	embed := &domain.Embed{
		Title:     fmt.Sprintf("📅 %s Meetings", wd),
		Color:     domain.EmbedColor,
		Thumbnail: domain.EmbedThumbnail,
		Footer:    domain.EmbedFooter,
	}
	embed.AddField(wd.String(), d.eventLines(events, func(e domain.Event) string {
		return e.Start.In(d.loc()).Format("Jan 2") + ", " + e.FormatTime(d.loc())
	}), false)
	return Reply{Embed: embed}
}

func (d *Dispatcher) calendarList(ctx context.Context) Reply {
	listing, err := d.calendar.ListForDisplay(ctx)
	if err != nil {
		return Reply{Content: MsgListFailed, Err: err}
	}

	embed := &domain.Embed{
		Title:     "📅 Upcoming Meetings",
		Color:     domain.EmbedColor,
		Thumbnail: domain.EmbedThumbnail,
		Footer:    domain.EmbedFooter,
	}
	if listing.IsEmpty() {
		embed.Description = MsgNoMeetings
		return Reply{Embed: embed}
	}

	if len(listing.Now) > 0 {
		embed.AddField("🟢 Happening Now", d.eventLines(listing.Now, func(e domain.Event) string {
			return e.FormatDateTime(d.loc()) + " _(Happening now!)_"
		}), false)
	}
	if len(listing.Upcoming) > 0 {
		embed.AddField("🔜 Upcoming", d.eventLines(listing.Upcoming, func(e domain.Event) string {
			return e.FormatDateTime(d.loc())
		}), false)
	}
	return Reply{Embed: embed}
}

func (d *Dispatcher) forecastCmd(ctx context.Context, o Options) Reply {
	report, err := d.forecast.ForDay(ctx, o.Day)
	switch {
	case errors.Is(err, domain.ErrTooFarAhead):
		return Reply{Content: MsgTooFarAhead}
	case errors.Is(err, domain.ErrNoForecastData):
		return Reply{Content: service.MsgNoForecastData}
	case errors.Is(err, domain.ErrValidation):
		return Reply{Content: MsgUnknownDay}
	case err != nil:
		return Reply{Content: MsgForecastFailed, Err: err}
	}
	return Reply{Embed: service.RenderForecast(report, d.loc(), d.units)}
}

func (d *Dispatcher) eventLines(events []domain.Event, when func(domain.Event) string) string {
	if len(events) > maxListed {
		events = events[:maxListed]
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, "**"+e.Summary+"**\n"+when(e))
	}
	return strings.Join(lines, "\n")
}
