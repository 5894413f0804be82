package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
)

// DefaultRunTimeout bounds a single announcement cycle
const DefaultRunTimeout = 30 * time.Second

// State is where a trigger is in its cycle
type State string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
	StateFired State = "fired"
)

// Outcome labels of a fired cycle
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Announcer computes the announcement to post
type Announcer interface {
	Compute(ctx context.Context) (domain.Announcement, error)
}

// Sender delivers an announcement
type Sender interface {
	Send(ctx context.Context, a domain.Announcement) error
}

// Trigger is a named cron spec with the weekdays it stays quiet on
type Trigger struct {
	Name string
	Spec string
	Skip []time.Weekday
}

// Triggers builds the weekday and weekend triggers sharing skip days
func Triggers(weekdaySpec, weekendSpec string, skip []time.Weekday) []Trigger {
	return []Trigger{
		{Name: "weekday", Spec: weekdaySpec, Skip: skip},
		{Name: "weekend", Spec: weekendSpec, Skip: skip},
	}
}

// TriggerStatus is a snapshot of one trigger
type TriggerStatus struct {
	Name        string    `json:"name"`
	Spec        string    `json:"spec"`
	State       State     `json:"state"`
	NextFire    time.Time `json:"next_fire,omitzero"`
	LastFire    time.Time `json:"last_fire,omitzero"`
	LastOutcome string    `json:"last_outcome,omitempty"`
}

type entry struct {
	Trigger
	schedule cron.Schedule
	status   TriggerStatus
}

// Scheduler fires the announcement workflow for each trigger. After every
// cycle, fired or skipped, the next fire time is recomputed from the
// current wall clock.
type Scheduler struct {
	announcer  Announcer
	sender     Sender
	metrics    *metrics.Metrics
	loc        *time.Location
	now        func() time.Time
	runTimeout time.Duration
	log        logrus.FieldLogger

	mu      sync.Mutex
	entries []*entry
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler, rejecting unparseable specs
func New(triggers []Trigger, announcer Announcer, sender Sender, m *metrics.Metrics, loc *time.Location, log logrus.FieldLogger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		announcer:  announcer,
		sender:     sender,
		metrics:    m,
		loc:        loc,
		now:        time.Now,
		runTimeout: DefaultRunTimeout,
		log:        logger.ForComponent(log, "scheduler"),
	}

	for _, t := range triggers {
		sched, err := cron.ParseStandard(t.Spec)
		if err != nil {
			return nil, fmt.Errorf("parse %s trigger %q: %w", t.Name, t.Spec, err)
		}
		s.entries = append(s.entries, &entry{
			Trigger:  t,
			schedule: sched,
			status:   TriggerStatus{Name: t.Name, Spec: t.Spec, State: StateIdle},
		})
	}
	return s, nil
}

// Start arms every trigger and returns. The triggers run until ctx is done
// or Stop is called. A scheduler cannot be started twice or after Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	if s.stopped {
		s.mu.Unlock()
		return errors.New("scheduler stopped")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(len(s.entries))
	s.mu.Unlock()

	for _, e := range s.entries {
		go s.run(ctx, e, s.arm(e, s.now()))
	}

	s.log.WithField("timezone", s.loc.String()).Info("Scheduler started")
	for _, st := range s.Status() {
		s.log.WithFields(logrus.Fields{"trigger": st.Name, "next_fire": st.NextFire}).Info("Trigger armed")
	}
	return nil
}

// Stop cancels pending timers and waits for running cycles to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// Status returns a snapshot of every trigger
func (s *Scheduler) Status() []TriggerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TriggerStatus, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.status)
	}
	return out
}

func (s *Scheduler) run(ctx context.Context, e *entry, next time.Time) {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.setState(e, StateIdle)
			return
		case <-timer.C:
		}

		s.setState(e, StateFired)
		runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
		if _, err := s.Fire(runCtx, e.Trigger, s.now()); err != nil {
			s.log.WithError(err).WithField("trigger", e.Name).Error("Scheduled announcement failed")
		}
		cancel()
		next = s.arm(e, s.now())
	}
}

// arm computes the next fire time after from and marks the trigger armed
func (s *Scheduler) arm(e *entry, from time.Time) time.Time {
	next := e.schedule.Next(from.In(s.loc))

	s.mu.Lock()
	e.status.State = StateArmed
	e.status.NextFire = next
	s.mu.Unlock()
	return next
}

func (s *Scheduler) setState(e *entry, st State) {
	s.mu.Lock()
	e.status.State = st
	s.mu.Unlock()
}

// Fire runs one cycle of t as of now: a skip day is a logged no-op,
// otherwise the announcement is computed and sent.
func (s *Scheduler) Fire(ctx context.Context, t Trigger, now time.Time) (string, error) {
	log := s.log.WithField("trigger", t.Name)

	outcome, err := s.fire(ctx, t, now, log)

	result := metrics.Result(err)
	if outcome == OutcomeSkipped {
		result = OutcomeSkipped
	}
	s.metrics.Announcements.WithLabelValues(t.Name, result).Inc()

	s.mu.Lock()
	for _, e := range s.entries {
		if e.Name == t.Name {
			e.status.LastFire = now
			e.status.LastOutcome = outcome
		}
	}
	s.mu.Unlock()

	return outcome, err
}

func (s *Scheduler) fire(ctx context.Context, t Trigger, now time.Time, log logrus.FieldLogger) (string, error) {
	if wd := now.In(s.loc).Weekday(); slices.Contains(t.Skip, wd) {
		log.WithField("weekday", wd.String()).Info("Skip day, no announcement")
		return OutcomeSkipped, nil
	}

	a, err := s.announcer.Compute(ctx)
	if err != nil {
		return OutcomeError, fmt.Errorf("compute announcement: %w", err)
	}

	if err := s.sender.Send(ctx, a); errors.Is(err, domain.ErrNoSinks) {
		log.Warn("No notification sinks configured, announcement not sent")
		return OutcomeSkipped, nil
	} else if err != nil {
		return OutcomeError, fmt.Errorf("send announcement: %w", err)
	}

	log.WithField("content", a.Content).Info("Announcement sent")
	return OutcomeSent, nil
}
