package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pauljones0/beatmaplinker/internal/config"
	"github.com/pauljones0/beatmaplinker/internal/format"
	"github.com/pauljones0/beatmaplinker/internal/limitedset"
	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/parser"
)

// Outcome is the terminal state reached for one item.
type Outcome int

const (
	OutcomeAlreadySeen Outcome = iota
	OutcomeNoLinks
	OutcomeOwnItem
	OutcomeAlreadyReplied
	OutcomeOverflow
	OutcomeReplied
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadySeen:
		return "already_seen"
	case OutcomeNoLinks:
		return "no_links"
	case OutcomeOwnItem:
		return "own_item"
	case OutcomeAlreadyReplied:
		return "already_replied"
	case OutcomeOverflow:
		return "overflow"
	case OutcomeReplied:
		return "replied"
	case OutcomeStale:
		return "stale"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Engine struct {
	source     ContentSource
	beatmaps   BeatmapLookup
	pp         PPLookup
	formatter  *format.Formatter
	botName    string
	maxMaps    int
	memeMarker string
}

func New(source ContentSource, beatmaps BeatmapLookup, pp PPLookup, f *format.Formatter, cfg *config.Config) *Engine {
	return &Engine{
		source:     source,
		beatmaps:   beatmaps,
		pp:         pp,
		formatter:  f,
		botName:    cfg.RedditUsername,
		maxMaps:    cfg.MaxMaps,
		memeMarker: cfg.MemeMarker,
	}
}

// Process runs one item through the reply decision. seen belongs to the
// calling worker and is only updated once every remote call for the item
// has completed. A returned error leaves the item unseen so a later scan
// retries it.
func (e *Engine) Process(ctx context.Context, item models.Item, seen *limitedset.Set[string]) (Outcome, error) {
	id := item.ID()
	if seen.Contains(id) {
		return OutcomeAlreadySeen, nil
	}

	refs, err := parser.ExtractRefs(item.HTML())
	if err != nil {
		return 0, fmt.Errorf("extracting links from %s %s: %w", item.Kind(), id, err)
	}
	if len(refs) == 0 {
		return e.finish(item, id, seen, OutcomeNoLinks)
	}

	if strings.EqualFold(item.Author(), e.botName) {
		return e.finish(item, id, seen, OutcomeOwnItem)
	}

	replied, err := e.source.HasReplied(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("checking earlier replies on %s %s: %w", item.Kind(), id, err)
	}
	if replied {
		return e.finish(item, id, seen, OutcomeAlreadyReplied)
	}

	var (
		texts   []string
		outcome Outcome
	)
	if len(refs) > e.maxMaps {
		slog.Info("Too many maps", "id", id, "kind", item.Kind(), "count", len(refs))
		texts = []string{e.formatter.TooManyMaps()}
		outcome = OutcomeOverflow
	} else {
		texts, err = e.render(ctx, item, refs)
		if err != nil {
			return 0, err
		}
		outcome = OutcomeReplied
	}

	if err := checkIdentity(item, id); err != nil {
		slog.Warn("Skipping reply", "kind", item.Kind(), "error", err)
		return OutcomeStale, nil
	}
	if _, err := e.source.Reply(ctx, item, texts); err != nil {
		return 0, fmt.Errorf("replying to %s %s: %w", item.Kind(), id, err)
	}
	return e.finish(item, id, seen, outcome)
}

// render resolves every reference and packs the blocks into reply bodies.
func (e *Engine) render(ctx context.Context, item models.Item, refs []models.BeatmapRef) ([]string, error) {
	blocks := make([]string, 0, len(refs))
	for _, ref := range refs {
		group, err := e.beatmaps.GetBeatmaps(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("looking up %s for %s %s: %w", ref, item.Kind(), item.ID(), err)
		}
		pp := e.pp.GetPPInfo(ctx, group)

		block, err := e.formatter.FormatMap(group, pp)
		if err != nil {
			slog.Warn("Failed to render map, using placeholder", "ref", ref.String(), "error", err)
			block = e.formatter.InvalidMap()
		}
		blocks = append(blocks, block)
	}

	style := e.styleFor(item, blocks)
	slog.Info("Found maps", "id", item.ID(), "kind", item.Kind(), "count", len(refs), "style", style)
	return e.formatter.FormatComments(blocks, style), nil
}

func (e *Engine) styleFor(item models.Item, blocks []string) format.Style {
	if e.memeMarker != "" {
		hits := 0
		for _, b := range blocks {
			if strings.Contains(b, e.memeMarker) {
				hits++
			}
		}
		if hits > 1 {
			return format.StyleMeme
		}
	}
	if item.Kind() == models.KindSubmission {
		return format.StyleSelfPost
	}
	return format.StyleNormal
}

// finish marks the item seen unless its identity moved underneath us.
func (e *Engine) finish(item models.Item, id string, seen *limitedset.Set[string], outcome Outcome) (Outcome, error) {
	if err := checkIdentity(item, id); err != nil {
		slog.Warn("Not marking item seen", "kind", item.Kind(), "outcome", outcome, "error", err)
		return OutcomeStale, nil
	}
	seen.Add(id)
	if outcome != OutcomeNoLinks {
		slog.Info("Processed item", "id", id, "kind", item.Kind(), "outcome", outcome)
	}
	return outcome, nil
}

func checkIdentity(item models.Item, id string) error {
	if cur := item.ID(); cur != id {
		return fmt.Errorf("%s %s is now %s: %w", item.Kind(), id, cur, models.ErrStaleItem)
	}
	return nil
}
