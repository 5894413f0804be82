package storage

import (
	"context"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// EventStore persists the whole event set. Every mutation is a full
// rewrite: load everything, change it in memory, save everything back.
// There is no concurrency control; overlapping load/save cycles lose
// the earlier write.
type EventStore interface {
	// LoadAll returns every stored event in store order
	LoadAll(ctx context.Context) ([]domain.Event, error)
	// SaveAll replaces the stored content with events
	SaveAll(ctx context.Context, events []domain.Event) error
	// Name identifies the backing medium in logs and metrics
	Name() string
}
