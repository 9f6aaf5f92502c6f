// Package scanner drives item processing: one worker per content kind,
// either polling the newest items or streaming them, and a supervisor that
// keeps the pair running.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pauljones0/beatmaplinker/internal/config"
	"github.com/pauljones0/beatmaplinker/internal/limitedset"
	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/processor"
)

// Fetcher lists the newest items of a kind, newest first.
type Fetcher interface {
	Fetch(ctx context.Context, kind models.Kind, limit int) ([]models.Item, error)
}

// ItemProcessor decides and performs the reply for one item.
type ItemProcessor interface {
	Process(ctx context.Context, item models.Item, seen *limitedset.Set[string]) (processor.Outcome, error)
}

type Settings struct {
	Mode         string
	Limit        int
	SeenCapacity int
	PollDelay    time.Duration
	RetryDelay   time.Duration
	IdleMin      time.Duration
	IdleMax      time.Duration
}

// SettingsFor derives the worker settings for kind from cfg.
func SettingsFor(cfg *config.Config, kind models.Kind) Settings {
	s := Settings{
		Mode:       cfg.ScanMode,
		PollDelay:  cfg.PollDelay(),
		RetryDelay: cfg.RetryDelay,
		IdleMin:    time.Second,
		IdleMax:    16 * time.Second,
	}
	switch cfg.ScanMode {
	case config.ScanModePoll:
		s.Limit = cfg.MaxComments
		if kind == models.KindSubmission {
			s.Limit = cfg.MaxSubmissions
		}
		s.SeenCapacity = 2 * s.Limit
	default:
		s.Limit = streamLimit
		s.SeenCapacity = cfg.StreamSeenCapacity
	}
	return s
}

type Worker struct {
	kind     models.Kind
	source   Fetcher
	engine   ItemProcessor
	settings Settings
	seen     *limitedset.Set[string]
}

func NewWorker(kind models.Kind, source Fetcher, engine ItemProcessor, s Settings) *Worker {
	return &Worker{
		kind:     kind,
		source:   source,
		engine:   engine,
		settings: s,
		seen:     limitedset.New[string](s.SeenCapacity),
	}
}

// Run processes items until ctx is cancelled. Recoverable failures are
// logged and retried after RetryDelay. A panic outside item processing ends
// the run with an error.
// Run never returns nil.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s worker panicked: %v", w.kind, r)
		}
	}()

	slog.Info("Starting worker", "kind", w.kind, "mode", w.settings.Mode, "seen_capacity", w.seen.Cap())
	if w.settings.Mode == config.ScanModePoll {
		return w.runPoll(ctx)
	}
	return w.runStream(ctx)
}

func (w *Worker) runPoll(ctx context.Context) error {
	for {
		delay := w.settings.PollDelay
		if err := w.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("Polling failed", "kind", w.kind, "error", err, "retry_in", w.settings.RetryDelay)
			delay = w.settings.RetryDelay
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// pollOnce handles one page newest-first and stops at the first id that was
// already seen, since everything older has been handled before.
func (w *Worker) pollOnce(ctx context.Context) error {
	items, err := w.source.Fetch(ctx, w.kind, w.settings.Limit)
	if err != nil {
		return err
	}
	for _, item := range items {
		if w.seen.Contains(item.ID()) {
			break
		}
		w.handle(ctx, item)
	}
	return nil
}

func (w *Worker) runStream(ctx context.Context) error {
	fetch := func(ctx context.Context) ([]models.Item, error) {
		return w.source.Fetch(ctx, w.kind, w.settings.Limit)
	}
	for {
		slog.Info("Starting streaming", "kind", w.kind)
		stream := NewStream(fetch, w.settings.IdleMin, w.settings.IdleMax)
		err := w.consume(ctx, stream)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("Streaming failed", "kind", w.kind, "error", err, "retry_in", w.settings.RetryDelay)
		if err := sleepCtx(ctx, w.settings.RetryDelay); err != nil {
			return err
		}
	}
}

func (w *Worker) consume(ctx context.Context, stream *Stream) error {
	for {
		batch, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		for _, item := range batch {
			w.handle(ctx, item)
		}
	}
}

// handle processes a single item. Its failure or panic is logged, the item
// stays unseen and the loop carries on.
func (w *Worker) handle(ctx context.Context, item models.Item) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing item", "kind", w.kind, "id", item.ID(), "panic", r)
		}
	}()

	outcome, err := w.engine.Process(ctx, item, w.seen)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("Failed to process item", "kind", w.kind, "id", item.ID(), "error", err)
		return
	}
	slog.Debug("Item done", "kind", w.kind, "id", item.ID(), "outcome", outcome)
}
