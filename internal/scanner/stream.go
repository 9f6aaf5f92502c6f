package scanner

import (
	"context"
	"time"

	"github.com/pauljones0/beatmaplinker/internal/limitedset"
	"github.com/pauljones0/beatmaplinker/internal/models"
)

const (
	streamLimit    = 100
	streamCapacity = 301
)

// Stream turns repeated newest-first listing fetches into a sequence of
// new items delivered oldest-first. Ids already delivered are remembered in
// a bounded set, so a fresh Stream replays whatever the listing still holds.
type Stream struct {
	fetch   func(ctx context.Context) ([]models.Item, error)
	seen    *limitedset.Set[string]
	minWait time.Duration
	maxWait time.Duration
	wait    time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewStream(fetch func(ctx context.Context) ([]models.Item, error), minWait, maxWait time.Duration) *Stream {
	return &Stream{
		fetch:   fetch,
		seen:    limitedset.New[string](streamCapacity),
		minWait: minWait,
		maxWait: maxWait,
		wait:    minWait,
		sleep:   sleepCtx,
	}
}

// Next blocks until the listing holds at least one undelivered item. Idle
// rounds back off exponentially up to maxWait; a productive round resets it.
func (s *Stream) Next(ctx context.Context) ([]models.Item, error) {
	for {
		items, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}

		var fresh []models.Item
		for i := len(items) - 1; i >= 0; i-- {
			id := items[i].ID()
			if s.seen.Contains(id) {
				continue
			}
			s.seen.Add(id)
			fresh = append(fresh, items[i])
		}
		if len(fresh) > 0 {
			s.wait = s.minWait
			return fresh, nil
		}

		if err := s.sleep(ctx, s.wait); err != nil {
			return nil, err
		}
		s.wait = min(s.wait*2, s.maxWait)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
