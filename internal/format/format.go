// Package format renders beatmap records into reply text and packs the
// rendered blocks into length-limited comment bodies.
package format

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/util"
)

const lineBreak = "\n\n"

// Style selects the header and footer of a reply chain.
type Style int

const (
	StyleNormal Style = iota
	StyleSelfPost
	StyleMeme
)

func (s Style) String() string {
	switch s {
	case StyleSelfPost:
		return "selfpost"
	case StyleMeme:
		return "meme"
	default:
		return "normal"
	}
}

// ppTiers are the accuracy keys exposed as pp_<tier> fields.
var ppTiers = []string{"95", "98", "99", "100"}

type Formatter struct {
	tmpl      Templates
	separator string

	single    *template.Template
	set       *template.Template
	pp        *template.Template
	modeLines map[string]*template.Template
	approval  map[string]*template.Template
}

// New compiles the templates. Any parse failure is returned.
func New(t Templates) (*Formatter, error) {
	f := &Formatter{
		tmpl:      t,
		separator: strings.ReplaceAll(t.Separator, `\n`, "\n"),
		modeLines: make(map[string]*template.Template),
		approval:  make(map[string]*template.Template),
	}

	var err error
	if f.single, err = compile("map", t.Map); err != nil {
		return nil, err
	}
	if f.set, err = compile("mapset", t.MapSet); err != nil {
		return nil, err
	}
	if t.PP != "" {
		if f.pp, err = compile("pp", t.PP); err != nil {
			return nil, err
		}
	}
	for name, text := range t.Modes {
		if f.modeLines[name], err = compile("modes."+name, text); err != nil {
			return nil, err
		}
	}
	for name, text := range t.Approval {
		if f.approval[name], err = compile("approval."+name, text); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func compile(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return t, nil
}

func execute(t *template.Template, fields map[string]string) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, fields); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", t.Name(), err)
	}
	return b.String(), nil
}

// TooManyMaps returns the single overflow reply body.
func (f *Formatter) TooManyMaps() string {
	if f.tmpl.Footer == "" {
		return f.tmpl.TooManyMaps
	}
	return f.tmpl.TooManyMaps + lineBreak + f.tmpl.Footer
}

// InvalidMap returns the placeholder rendered for a reference without records.
func (f *Formatter) InvalidMap() string {
	return f.tmpl.InvalidMap
}

func (f *Formatter) headerFooter(style Style) (string, string) {
	header, footer := f.tmpl.Header, f.tmpl.Footer
	var v Variant
	switch style {
	case StyleSelfPost:
		v = f.tmpl.SelfPost
	case StyleMeme:
		v = f.tmpl.Meme
	}
	if v.Header != nil {
		header = *v.Header
	}
	if v.Footer != nil {
		footer = *v.Footer
	}
	return header, footer
}

type modeStats struct {
	min, max float64
	count    int
}

// FormatMap renders one record group. A single record uses the map template,
// several use the mapset template, and an empty group renders the invalid map
// placeholder. pp may be nil.
func (f *Formatter) FormatMap(group []models.Beatmap, pp models.PPInfo) (string, error) {
	if len(group) == 0 {
		return f.tmpl.InvalidMap, nil
	}

	first := group[0]
	fields := map[string]string{
		"title":            SanitizeMarkdown(first.Title),
		"artist":           SanitizeMarkdown(first.Artist),
		"creator":          SanitizeMarkdown(first.Creator),
		"source":           SanitizeMarkdown(first.Source),
		"version":          SanitizeMarkdown(first.Version),
		"beatmap_id":       first.BeatmapID,
		"beatmapset_id":    first.BeatmapsetID,
		"bpm":              first.BPM,
		"max_combo":        strconv.Itoa(first.MaxCombo),
		"count":            strconv.Itoa(len(group)),
		"difficultyrating": util.FormatFloat(first.DifficultyRating),
		"hit_length":       SecondsToString(first.HitLength),
		"total_length":     SecondsToString(first.TotalLength),
		"mode":             f.modeName(first.Mode),
	}

	approved := first.Approved.String()
	fields["approved"] = approved
	if t, ok := f.approval[approved]; ok {
		decorated, err := execute(t, fields)
		if err != nil {
			return "", err
		}
		fields["approved"] = decorated
	}

	modes, err := f.formatModes(group, fields)
	if err != nil {
		return "", err
	}
	fields["modes"] = modes

	fields["pp"] = ""
	if pp != nil && f.pp != nil {
		for _, tier := range ppTiers {
			if v, ok := pp[tier]; ok {
				fields["pp_"+tier] = strconv.FormatFloat(v, 'f', 0, 64)
			}
		}
		line, err := execute(f.pp, fields)
		if err != nil {
			return "", err
		}
		fields["pp"] = line
	}

	if len(group) == 1 {
		return execute(f.single, fields)
	}
	return execute(f.set, fields)
}

// formatModes renders one line per game mode present in the group, in mode
// order, joined by newlines.
func (f *Formatter) formatModes(group []models.Beatmap, base map[string]string) (string, error) {
	stats := make(map[models.Mode]*modeStats)
	for _, b := range group {
		s, ok := stats[b.Mode]
		if !ok {
			stats[b.Mode] = &modeStats{min: b.DifficultyRating, max: b.DifficultyRating, count: 1}
			continue
		}
		s.min = min(s.min, b.DifficultyRating)
		s.max = max(s.max, b.DifficultyRating)
		s.count++
	}

	var lines []string
	for _, mode := range models.Modes {
		s, ok := stats[mode]
		if !ok {
			continue
		}
		t, ok := f.modeLines[mode.String()]
		if !ok {
			continue
		}
		fields := maps.Clone(base)
		fields["mode"] = f.modeName(mode)
		fields["diff_min"] = util.FormatFloat(s.min)
		fields["diff_max"] = util.FormatFloat(s.max)
		fields["count"] = strconv.Itoa(s.count)
		line, err := execute(t, fields)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (f *Formatter) modeName(m models.Mode) string {
	if name, ok := f.tmpl.ModeNames[m.String()]; ok {
		return name
	}
	return m.String()
}

// FormatComments packs rendered blocks into reply bodies of at most CharLimit
// characters. The header opens the first body and the footer closes the last.
//
// A block that only overflows because of the footer is still placed in the
// current body when more blocks follow, and the next body starts right after
// it. This mirrors the historical packing and is not optimal bin-packing.
// A block that cannot fit even in an empty body is emitted on its own.
func (f *Formatter) FormatComments(blocks []string, style Style) []string {
	header, footer := f.headerFooter(style)
	limit := f.tmpl.CharLimit

	footerLen := 0
	if footer != "" {
		footerLen = runeLen(footer) + runeLen(lineBreak)
	}
	sepLen := runeLen(f.separator)

	var bodies []string
	var cur strings.Builder
	curLen := 0
	if header != "" {
		cur.WriteString(header + lineBreak)
		curLen = runeLen(header) + runeLen(lineBreak)
	}
	empty := true // no block in cur yet

	flush := func() {
		bodies = append(bodies, cur.String())
		cur.Reset()
		curLen = 0
		empty = true
	}

	for i, block := range blocks {
		blockLen := runeLen(block)
		nextLen := curLen + blockLen + footerLen
		if !empty {
			nextLen += sepLen
		}

		startAfter := false
		if nextLen > limit && !empty {
			if nextLen-footerLen > limit || i == len(blocks)-1 {
				flush()
			} else {
				startAfter = true
			}
		}

		if !empty {
			cur.WriteString(f.separator)
			curLen += sepLen
		}
		cur.WriteString(block)
		curLen += blockLen
		empty = false

		if startAfter {
			flush()
		}
	}

	if footer != "" {
		cur.WriteString(lineBreak + footer)
	}
	bodies = append(bodies, cur.String())
	return bodies
}

// SecondsToString renders a duration in seconds as m:ss.
func SecondsToString(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

var (
	emphasisReplacer = strings.NewReplacer("*", "&#0042;", "_", "&#0095;")
	markdownReplacer = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`, "^", `\^`, "~~", `\~~`)
)

// SanitizeMarkdown escapes characters Reddit markdown would interpret.
// Emphasis markers become numeric character references so they cannot pair
// up with markers in the surrounding template.
func SanitizeMarkdown(s string) string {
	return markdownReplacer.Replace(emphasisReplacer.Replace(s))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
