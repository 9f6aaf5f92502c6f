// Package parser finds osu! beatmap links in rendered comment HTML.
package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/util"
)

const newSitePath = "/beatmapsets/"

var allowedHosts = []string{"osu.ppy.sh", "old.ppy.sh"}

func isAllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range allowedHosts {
		if host == h {
			return true
		}
	}
	return false
}

// ExtractLinks returns the href of every anchor pointing at an osu! host, in
// document order. Duplicates are kept.
func ExtractLinks(body string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML body: %w", err)
	}

	var links []string
	goquery.NewDocumentFromNode(root).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if !isAllowedHost(parsed.Hostname()) {
			return
		}
		links = append(links, href)
	})
	return links, nil
}

// ParseBeatmapURL converts a beatmap URL into a reference. Supported forms:
//
//	https://osu.ppy.sh/b/244182
//	https://osu.ppy.sh/s/295480
//	https://osu.ppy.sh/p/beatmap?b=115891&m=0
//	https://osu.ppy.sh/p/beatmap?s=295480
//	https://osu.ppy.sh/beatmapsets/781006/#osu/1640424
//
// New-site links always resolve to the set; the difficulty fragment is ignored.
func ParseBeatmapURL(rawURL string) (models.BeatmapRef, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return models.BeatmapRef{}, false
	}

	var mapType models.MapType
	var mapID string
	switch path := parsed.Path; {
	case strings.HasPrefix(path, "/b/"):
		mapType, mapID = models.MapSingle, path[len("/b/"):]
	case strings.HasPrefix(path, "/s/"):
		mapType, mapID = models.MapSet, path[len("/s/"):]
	case path == "/p/beatmap":
		query := parsed.Query()
		if b := query.Get("b"); b != "" {
			mapType, mapID = models.MapSingle, b
		} else if s := query.Get("s"); s != "" {
			mapType, mapID = models.MapSet, s
		}
	case strings.HasPrefix(path, newSitePath):
		mapType, mapID = models.MapSet, path[len(newSitePath):]
	}
	if mapType == "" {
		return models.BeatmapRef{}, false
	}

	if i := strings.Index(mapID, "&"); i >= 0 {
		mapID = mapID[:i]
	}
	mapID = strings.TrimRight(mapID, "/")

	if !util.IsDigits(mapID) {
		return models.BeatmapRef{}, false
	}
	return models.BeatmapRef{Type: mapType, ID: mapID}, true
}

// ExtractRefs returns the unique beatmap references linked from body, in order
// of first occurrence.
func ExtractRefs(body string) ([]models.BeatmapRef, error) {
	links, err := ExtractLinks(body)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.BeatmapRef]struct{}, len(links))
	var refs []models.BeatmapRef
	for _, link := range links {
		ref, ok := ParseBeatmapURL(link)
		if !ok {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}
