package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/beatmaplinker/internal/models"
)

// WorkerFactory builds a worker with its own source client and seen set.
type WorkerFactory func(kind models.Kind) (*Worker, error)

// Supervisor runs the comment and submission workers as a pair. When one
// of them stops, both are torn down and rebuilt after the retry delay.
type Supervisor struct {
	newWorker  WorkerFactory
	retryDelay time.Duration
	kinds      []models.Kind
}

func NewSupervisor(newWorker WorkerFactory, retryDelay time.Duration) *Supervisor {
	return &Supervisor{
		newWorker:  newWorker,
		retryDelay: retryDelay,
		kinds:      []models.Kind{models.KindComment, models.KindSubmission},
	}
}

// Run blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.runPair(ctx)
		if ctx.Err() != nil {
			slog.Info("Supervisor stopping")
			return nil
		}
		slog.Error("Worker stopped, restarting both workers", "error", err, "retry_in", s.retryDelay)
		if err := sleepCtx(ctx, s.retryDelay); err != nil {
			return nil
		}
	}
}

func (s *Supervisor) runPair(ctx context.Context) error {
	workers := make([]*Worker, 0, len(s.kinds))
	for _, kind := range s.kinds {
		w, err := s.newWorker(kind)
		if err != nil {
			return fmt.Errorf("building %s worker: %w", kind, err)
		}
		workers = append(workers, w)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				return err
			}
			return fmt.Errorf("%s worker exited", w.kind)
		})
	}
	return g.Wait()
}
