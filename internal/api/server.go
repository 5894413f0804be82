package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/calendar"
	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
	"github.com/elhs-robotics/krunchbot/internal/scheduler"
	"github.com/elhs-robotics/krunchbot/internal/service"
)

// ScheduleStatus reports trigger state
type ScheduleStatus interface {
	Status() []scheduler.TriggerStatus
}

// Options configures the admin server
type Options struct {
	Port     string
	Username string
	Password string
}

// Server is the admin HTTP API
type Server struct {
	engine       *gin.Engine
	server       *http.Server
	calendar     *service.CalendarService
	announcement *service.AnnouncementService
	schedule     ScheduleStatus
	metrics      *metrics.Metrics
	now          func() time.Time
	log          logrus.FieldLogger
}

// NewServer creates the server and registers all routes
func NewServer(opts Options, cal *service.CalendarService, ann *service.AnnouncementService, sched ScheduleStatus, m *metrics.Metrics, gatherer prometheus.Gatherer, log logrus.FieldLogger) *Server {
	s := &Server{
		engine:       gin.New(),
		calendar:     cal,
		announcement: ann,
		schedule:     sched,
		metrics:      m,
		now:          time.Now,
		log:          logger.ForComponent(log, "api"),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if opts.Username == "" || opts.Password == "" {
		s.log.Warn("API_USERNAME or API_PASSWORD not set, /api is disabled")
	} else {
		authorized := s.engine.Group("/api", gin.BasicAuthForRealm(gin.Accounts{opts.Username: opts.Password}, "Krunchbot API"))
		authorized.GET("/events", s.listEvents)
		authorized.POST("/events", s.createEvent)
		authorized.GET("/events/now", s.eventsNow)
		authorized.GET("/calendar.ics", s.icsFeed)
		authorized.GET("/announcement", s.previewAnnouncement)
		authorized.GET("/schedule", s.scheduleStatus)
	}

	s.server = &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("HTTP request")
	}
}

func (s *Server) jsonError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrForecastUnavailable):
		code = http.StatusBadGateway
	}
	if code >= 500 {
		s.log.WithError(err).WithField("path", c.Request.URL.Path).Error("API request failed")
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// listEvents returns upcoming events, or the events on ?day=weekday,
// with weekly series collapsed
func (s *Server) listEvents(c *gin.Context) {
	var (
		events []domain.Event
		err    error
	)
	if day := strings.TrimSpace(c.Query("day")); day != "" {
		wd, perr := domain.ParseWeekday(day)
		if perr != nil {
			s.jsonError(c, perr)
			return
		}
		events, err = s.calendar.ByWeekday(c.Request.Context(), wd)
	} else {
		events, err = s.calendar.Upcoming(c.Request.Context())
	}
	if err != nil {
		s.jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": calendar.CollapseRecurrences(events)})
}

type createEventRequest struct {
	Summary   string `json:"summary" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Weekly    bool   `json:"weekly"`
}

func (s *Server) createEvent(c *gin.Context) {
	var body createEventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := s.calendar.AddEvent(c.Request.Context(), service.NewEvent{
		Summary:   body.Summary,
		Date:      body.Date,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Weekly:    body.Weekly,
	})
	if err != nil {
		s.jsonError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": len(added), "event": added[0]})
}

func (s *Server) eventsNow(c *gin.Context) {
	events, err := s.calendar.ActiveNow(c.Request.Context())
	if err != nil {
		s.jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// icsFeed exports the whole calendar, cancelled events included
func (s *Server) icsFeed(c *gin.Context) {
	events, err := s.calendar.Events(c.Request.Context())
	if err != nil {
		s.jsonError(c, err)
		return
	}

	data, err := calendar.Encode(calendar.NewCalendar(events, s.now()))
	if err != nil {
		s.jsonError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// previewAnnouncement computes what the scheduler would post, without sending
func (s *Server) previewAnnouncement(c *gin.Context) {
	a, err := s.announcement.Compute(c.Request.Context())
	s.metrics.Announcements.WithLabelValues("api", metrics.Result(err)).Inc()
	if err != nil {
		s.jsonError(c, err)
		return
	}

	resp := gin.H{"content": a.Content, "mention_everyone": a.MentionEveryone}
	if a.Embed != nil {
		resp["embed"] = a.Embed
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) scheduleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"triggers": s.schedule.Status()})
}
