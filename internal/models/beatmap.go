package models

import "fmt"

// MapType selects whether a reference points at one difficulty or a whole set.
// The values double as the osu! API query parameter names.
type MapType string

const (
	MapSingle MapType = "b"
	MapSet    MapType = "s"
)

// BeatmapRef is the normalized key for a beatmap link. Comparable, so it can be
// used directly as a map key.
type BeatmapRef struct {
	Type MapType
	ID   string
}

func (r BeatmapRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// Approval is the ranked status reported by the osu! API.
type Approval int

const (
	ApprovalGraveyard Approval = -2
	ApprovalWIP       Approval = -1
	ApprovalPending   Approval = 0
	ApprovalRanked    Approval = 1
	ApprovalApproved  Approval = 2
	ApprovalQualified Approval = 3
	ApprovalLoved     Approval = 4
)

func (a Approval) String() string {
	switch a {
	case ApprovalGraveyard:
		return "graveyard"
	case ApprovalWIP:
		return "wip"
	case ApprovalPending:
		return "pending"
	case ApprovalRanked:
		return "ranked"
	case ApprovalApproved:
		return "approved"
	case ApprovalQualified:
		return "qualified"
	case ApprovalLoved:
		return "loved"
	default:
		return fmt.Sprintf("approval(%d)", int(a))
	}
}

// Mode is the game mode of a difficulty.
type Mode int

const (
	ModeStandard Mode = 0
	ModeTaiko    Mode = 1
	ModeCtB      Mode = 2
	ModeMania    Mode = 3
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeStandard, ModeTaiko, ModeCtB, ModeMania}

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeTaiko:
		return "taiko"
	case ModeCtB:
		return "ctb"
	case ModeMania:
		return "mania"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Beatmap is a single difficulty as returned by the beatmap lookup.
type Beatmap struct {
	BeatmapID        string   `validate:"required,numeric"`
	BeatmapsetID     string   `validate:"required,numeric"`
	Title            string
	Artist           string
	Creator          string
	Source           string
	Version          string
	Approved         Approval `validate:"gte=-2,lte=4"`
	DifficultyRating float64  `validate:"gte=0"`
	Mode             Mode     `validate:"gte=0,lte=3"`
	HitLength        int      `validate:"gte=0"`
	TotalLength      int      `validate:"gte=0"`
	BPM              string
	MaxCombo         int
}

// PPInfo maps an accuracy tier ("95", "98", "99", "100") to its pp value.
// A nil PPInfo means no data.
type PPInfo map[string]float64
