package storage

import (
	"context"

	"github.com/elhs-robotics/krunchbot/internal/domain"
	"github.com/elhs-robotics/krunchbot/internal/metrics"
)

// Instrumented counts loads and saves of the wrapped store
type Instrumented struct {
	next    EventStore
	metrics *metrics.Metrics
}

// NewInstrumented wraps next with store operation counters
func NewInstrumented(next EventStore, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (s *Instrumented) Name() string { return s.next.Name() }

func (s *Instrumented) LoadAll(ctx context.Context) ([]domain.Event, error) {
	events, err := s.next.LoadAll(ctx)
	s.metrics.StoreOperations.WithLabelValues(s.next.Name(), "load", metrics.Result(err)).Inc()
	return events, err
}

func (s *Instrumented) SaveAll(ctx context.Context, events []domain.Event) error {
	err := s.next.SaveAll(ctx, events)
	s.metrics.StoreOperations.WithLabelValues(s.next.Name(), "save", metrics.Result(err)).Inc()
	return err
}
