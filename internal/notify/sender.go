package notify

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// Sender delivers an announcement somewhere
type Sender interface {
	Send(ctx context.Context, a domain.Announcement) error
}

// Fanout sends to every sink, continuing past failures. An empty Fanout
// returns domain.ErrNoSinks.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, a domain.Announcement) error {
	if len(f) == 0 {
		return domain.ErrNoSinks
	}
	var errs *multierror.Error
	for _, s := range f {
		if err := s.Send(ctx, a); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
