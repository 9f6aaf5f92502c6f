package processor

import (
	"context"

	"github.com/pauljones0/beatmaplinker/internal/models"
)

// BeatmapLookup resolves a reference to its record group.
type BeatmapLookup interface {
	GetBeatmaps(ctx context.Context, ref models.BeatmapRef) ([]models.Beatmap, error)
}

// PPLookup returns optional performance data for a record group.
type PPLookup interface {
	GetPPInfo(ctx context.Context, group []models.Beatmap) models.PPInfo
}

// ContentSource abstracts the remote side effects on an item.
type ContentSource interface {
	HasReplied(ctx context.Context, item models.Item) (bool, error)
	Reply(ctx context.Context, item models.Item, texts []string) ([]string, error)
}
