package format

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pauljones0/beatmaplinker/internal/models"
)

func strPtr(s string) *string { return &s }

func testTemplates() Templates {
	return Templates{
		Separator:   "\n\n",
		CharLimit:   100,
		InvalidMap:  "Invalid map.",
		TooManyMaps: "Too many maps.",
		Header:      "HEADER",
		Footer:      "FOOTER",
		SelfPost:    Variant{Header: strPtr("SELF")},
		Meme:        Variant{Header: strPtr("MEME"), Footer: strPtr("")},
		Map:         "{{.artist}} - {{.title}} [{{.version}}] {{.difficultyrating}} {{.hit_length}}/{{.total_length}} {{.approved}}{{.pp}}",
		MapSet:      "{{.title}} ({{.count}})\n{{.modes}}",
		PP:          " | {{.pp_95}}/{{.pp_100}}",
		Modes: map[string]string{
			"standard": "{{.mode}} {{.diff_min}}-{{.diff_max}} x{{.count}}",
			"mania":    "{{.mode}} {{.diff_min}}-{{.diff_max}} x{{.count}}",
		},
		ModeNames: map[string]string{"standard": "osu!", "mania": "osu!mania"},
		Approval:  map[string]string{"ranked": "Ranked", "loved": "<3"},
	}
}

func newTestFormatter(t *testing.T, tmpl Templates) *Formatter {
	t.Helper()
	f, err := New(tmpl)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func TestSecondsToString(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{125, "2:05"},
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{3725, "62:05"},
	}
	for _, tt := range tests {
		if got := SecondsToString(tt.seconds); got != tt.want {
			t.Errorf("SecondsToString(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSanitizeMarkdown(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"*Infected*", "&#0042;Infected&#0042;"},
		{"snake_case_name", "snake&#0095;case&#0095;name"},
		{`[tag] a^b \ c`, `\[tag\] a\^b \\ c`},
		{"~~strike~~", `\~~strike\~~`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := SanitizeMarkdown(tt.input); got != tt.want {
			t.Errorf("SanitizeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatMap_Single(t *testing.T) {
	f := newTestFormatter(t, testTemplates())
	group := []models.Beatmap{{
		BeatmapID:        "1",
		BeatmapsetID:     "2",
		Title:            "*Infected*",
		Artist:           "Artist",
		Version:          "Insane",
		Approved:         models.ApprovalRanked,
		DifficultyRating: 5.678,
		Mode:             models.ModeStandard,
		HitLength:        125,
		TotalLength:      130,
	}}

	got, err := f.FormatMap(group, nil)
	if err != nil {
		t.Fatalf("FormatMap() error = %v", err)
	}
	want := "Artist - &#0042;Infected&#0042; [Insane] 5.678 2:05/2:10 Ranked"
	if got != want {
		t.Errorf("FormatMap() = %q, want %q", got, want)
	}
	if strings.Contains(got, "*") {
		t.Errorf("Rendered block still contains a raw emphasis marker: %q", got)
	}
}

func TestFormatMap_WithPP(t *testing.T) {
	f := newTestFormatter(t, testTemplates())
	group := []models.Beatmap{{BeatmapID: "1", BeatmapsetID: "2", Approved: models.ApprovalLoved}}
	pp := models.PPInfo{"95": 101.4, "98": 120, "99": 130, "100": 150.6}

	got, err := f.FormatMap(group, pp)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "<3 | 101/151") {
		t.Errorf("FormatMap() = %q, want pp suffix and loved decoration", got)
	}
}

func TestFormatMap_SetAggregatesPerMode(t *testing.T) {
	f := newTestFormatter(t, testTemplates())
	group := []models.Beatmap{
		{BeatmapID: "1", BeatmapsetID: "9", Title: "Song", Mode: models.ModeMania, DifficultyRating: 3.5},
		{BeatmapID: "2", BeatmapsetID: "9", Title: "Song", Mode: models.ModeStandard, DifficultyRating: 4.25},
		{BeatmapID: "3", BeatmapsetID: "9", Title: "Song", Mode: models.ModeStandard, DifficultyRating: 2},
		{BeatmapID: "4", BeatmapsetID: "9", Title: "Song", Mode: models.ModeStandard, DifficultyRating: 6.1},
		{BeatmapID: "5", BeatmapsetID: "9", Title: "Song", Mode: models.ModeTaiko, DifficultyRating: 3},
	}

	got, err := f.FormatMap(group, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Taiko has no line template and is omitted; modes appear in mode order.
	want := "Song (5)\nosu! 2.0-6.1 x3\nosu!mania 3.5-3.5 x1"
	if got != want {
		t.Errorf("FormatMap() = %q, want %q", got, want)
	}
}

func TestFormatMap_EmptyGroupIsInvalid(t *testing.T) {
	f := newTestFormatter(t, testTemplates())
	got, err := f.FormatMap(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Invalid map." {
		t.Errorf("FormatMap(nil) = %q, want placeholder", got)
	}
}

func TestNew_BadTemplate(t *testing.T) {
	tmpl := testTemplates()
	tmpl.Map = "{{.title"
	if _, err := New(tmpl); err == nil {
		t.Error("Expected New() to fail on an unparsable template")
	}
}

func TestFormatComments_SingleBody(t *testing.T) {
	f := newTestFormatter(t, testTemplates())
	got := f.FormatComments([]string{"one", "two"}, StyleNormal)
	want := []string{"HEADER\n\none\n\ntwo\n\nFOOTER"}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("FormatComments() = %q, want %q", got, want)
	}
}

func TestFormatComments_Styles(t *testing.T) {
	f := newTestFormatter(t, testTemplates())

	self := f.FormatComments([]string{"x"}, StyleSelfPost)
	if self[0] != "SELF\n\nx\n\nFOOTER" {
		t.Errorf("selfpost body = %q", self[0])
	}

	meme := f.FormatComments([]string{"x"}, StyleMeme)
	if meme[0] != "MEME\n\nx" {
		t.Errorf("meme body = %q (empty footer override should drop the footer)", meme[0])
	}
}

func TestFormatComments_SplitsAtLimit(t *testing.T) {
	tmpl := testTemplates()
	tmpl.CharLimit = 40
	f := newTestFormatter(t, tmpl)

	a := strings.Repeat("a", 20)
	b := strings.Repeat("b", 20)
	c := strings.Repeat("c", 20)
	got := f.FormatComments([]string{a, b, c}, StyleNormal)

	want := []string{
		"HEADER\n\n" + a,
		b,
		c + "\n\nFOOTER",
	}
	if len(got) != len(want) {
		t.Fatalf("FormatComments() produced %d bodies %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("body %d = %q, want %q", i, got[i], want[i])
		}
	}
	for i, body := range got {
		if n := utf8.RuneCountInString(body); n > tmpl.CharLimit {
			t.Errorf("body %d has %d chars, exceeds limit %d", i, n, tmpl.CharLimit)
		}
	}
}

func TestFormatComments_DefersFooterOverflow(t *testing.T) {
	tmpl := testTemplates()
	tmpl.CharLimit = 40
	f := newTestFormatter(t, tmpl)

	// After a: 13 chars. Adding b gives 35, or 43 with the footer, so b is
	// crammed in and the next body starts straight after it.
	a := strings.Repeat("a", 5)
	b := strings.Repeat("b", 20)
	c := strings.Repeat("c", 3)
	got := f.FormatComments([]string{a, b, c}, StyleNormal)

	want := []string{"HEADER\n\n" + a + "\n\n" + b, c + "\n\nFOOTER"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("FormatComments() = %q, want %q", got, want)
	}
}

func TestFormatComments_FooterOverflowOnLastBlock(t *testing.T) {
	tmpl := testTemplates()
	tmpl.CharLimit = 30
	f := newTestFormatter(t, tmpl)

	// Second block fits without the footer but is the final one, so it moves on.
	a := strings.Repeat("a", 5)
	b := strings.Repeat("b", 12)
	got := f.FormatComments([]string{a, b}, StyleNormal)

	want := []string{"HEADER\n\n" + a, b + "\n\nFOOTER"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("FormatComments() = %q, want %q", got, want)
	}
}

func TestFormatComments_OversizedBlockStillEmitted(t *testing.T) {
	tmpl := testTemplates()
	tmpl.CharLimit = 20
	f := newTestFormatter(t, tmpl)

	huge := strings.Repeat("x", 50)
	got := f.FormatComments([]string{huge, "y"}, StyleNormal)

	if len(got) != 2 {
		t.Fatalf("FormatComments() = %q, want 2 bodies", got)
	}
	if got[0] != "HEADER\n\n"+huge {
		t.Errorf("oversized block should share the header body, got %q", got[0])
	}
	if got[1] != "y\n\nFOOTER" {
		t.Errorf("second body = %q", got[1])
	}
	for _, body := range got {
		if strings.TrimSpace(body) == "" || body == "HEADER\n\n" {
			t.Errorf("FormatComments() emitted an empty body: %q", got)
		}
	}
}

// Only a body holding a single block may exceed the limit, and packing
// keeps every block in order.
func TestFormatComments_PackingRespectsLimit(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, limit := range []int{30, 40, 60, 100, 500} {
		for iter := range 200 {
			tmpl := testTemplates()
			tmpl.CharLimit = limit
			f := newTestFormatter(t, tmpl)

			blocks := make([]string, 1+rng.IntN(12))
			for i := range blocks {
				blocks[i] = fmt.Sprintf("%03d", i) + strings.Repeat("x", rng.IntN(limit))
			}
			bodies := f.FormatComments(blocks, StyleNormal)

			var packed []string
			for i, body := range bodies {
				parts := strings.Split(body, "\n\n")
				if i == 0 {
					if parts[0] != "HEADER" {
						t.Fatalf("limit %d iter %d: first body lacks header: %q", limit, iter, body)
					}
					parts = parts[1:]
				}
				if i == len(bodies)-1 {
					if parts[len(parts)-1] != "FOOTER" {
						t.Fatalf("limit %d iter %d: last body lacks footer: %q", limit, iter, body)
					}
					parts = parts[:len(parts)-1]
				}
				if len(parts) == 0 {
					t.Fatalf("limit %d iter %d: body %d holds no block: %q", limit, iter, i, bodies)
				}
				if n := utf8.RuneCountInString(body); n > limit && len(parts) != 1 {
					t.Errorf("limit %d iter %d: body %d has %d chars over %d blocks", limit, iter, i, n, len(parts))
				}
				packed = append(packed, parts...)
			}
			if strings.Join(packed, "|") != strings.Join(blocks, "|") {
				t.Fatalf("limit %d iter %d: blocks reordered or lost:\n got %q\nwant %q", limit, iter, packed, blocks)
			}
		}
	}
}

func TestTooManyMaps(t *testing.T) {
	f := newTestFormatter(t, testTemplates())
	if got := f.TooManyMaps(); got != "Too many maps.\n\nFOOTER" {
		t.Errorf("TooManyMaps() = %q", got)
	}
}

func TestDefaultTemplates(t *testing.T) {
	tmpl, err := DefaultTemplates()
	if err != nil {
		t.Fatalf("DefaultTemplates() error = %v", err)
	}
	f, err := New(tmpl)
	if err != nil {
		t.Fatalf("New(DefaultTemplates()) error = %v", err)
	}

	block, err := f.FormatMap([]models.Beatmap{{
		BeatmapID: "1", BeatmapsetID: "2", Title: "T", Artist: "A",
		Approved: models.ApprovalRanked, DifficultyRating: 5.678, HitLength: 125, TotalLength: 125,
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"5.678", "2:05", "Ranked", "https://osu.ppy.sh/b/1"} {
		if !strings.Contains(block, want) {
			t.Errorf("default map block %q missing %q", block, want)
		}
	}
}

func TestLoadTemplatesFromBytes(t *testing.T) {
	data := []byte(`
char_limit: 500
invalid_map: "bad"
too_many_maps: "many"
map: "{{.title}}"
mapset: "{{.title}}"
meme:
  footer: ""
`)
	tmpl, err := LoadTemplatesFromBytes(data)
	if err != nil {
		t.Fatalf("LoadTemplatesFromBytes() error = %v", err)
	}
	if tmpl.CharLimit != 500 {
		t.Errorf("CharLimit = %d, want 500", tmpl.CharLimit)
	}
	if tmpl.Separator != "\n\n" {
		t.Errorf("Separator default = %q, want blank line", tmpl.Separator)
	}
	if tmpl.Meme.Header != nil {
		t.Error("Absent meme header should stay nil so it inherits")
	}
	if tmpl.Meme.Footer == nil || *tmpl.Meme.Footer != "" {
		t.Error("Explicit empty meme footer should be kept")
	}
}

func TestLoadTemplatesFromBytes_MissingRequired(t *testing.T) {
	if _, err := LoadTemplatesFromBytes([]byte(`char_limit: 10`)); err == nil {
		t.Error("Expected error when map templates are missing")
	}
}

func TestLoadConfig_FallsBackToEmbedded(t *testing.T) {
	tmpl, err := LoadConfig(t.TempDir() + "/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if tmpl.Map == "" {
		t.Error("Expected embedded templates")
	}
}
