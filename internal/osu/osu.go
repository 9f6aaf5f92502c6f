// Package osu is a small client for the osu! API v1 get_beatmaps endpoint.
package osu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/util"
	"github.com/pauljones0/beatmaplinker/internal/validator"
)

const DefaultBaseURL = "https://osu.ppy.sh"

// RemoteError is returned when the API answers with an error field.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "osu!api returned an error of " + e.Message
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	validator  *validator.Validator
}

func New(apiKey string, timeout time.Duration) *Client {
	return NewWithBaseURL(apiKey, DefaultBaseURL, &http.Client{Timeout: timeout})
}

// NewWithBaseURL creates a client against a custom base URL (for testing).
func NewWithBaseURL(apiKey, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		validator:  validator.New(),
	}
}

// apiBeatmap mirrors the API payload; every field arrives as a string.
type apiBeatmap struct {
	BeatmapID        string `json:"beatmap_id"`
	BeatmapsetID     string `json:"beatmapset_id"`
	Title            string `json:"title"`
	Artist           string `json:"artist"`
	Creator          string `json:"creator"`
	Source           string `json:"source"`
	Version          string `json:"version"`
	Approved         string `json:"approved"`
	DifficultyRating string `json:"difficultyrating"`
	Mode             string `json:"mode"`
	HitLength        string `json:"hit_length"`
	TotalLength      string `json:"total_length"`
	BPM              string `json:"bpm"`
	MaxCombo         string `json:"max_combo"`
}

func (b apiBeatmap) toModel() models.Beatmap {
	return models.Beatmap{
		BeatmapID:        b.BeatmapID,
		BeatmapsetID:     b.BeatmapsetID,
		Title:            b.Title,
		Artist:           b.Artist,
		Creator:          b.Creator,
		Source:           b.Source,
		Version:          b.Version,
		Approved:         models.Approval(util.SafeAtoi(b.Approved)),
		DifficultyRating: util.SafeAtof(b.DifficultyRating),
		Mode:             models.Mode(util.SafeAtoi(b.Mode)),
		HitLength:        util.SafeAtoi(b.HitLength),
		TotalLength:      util.SafeAtoi(b.TotalLength),
		BPM:              b.BPM,
		MaxCombo:         util.SafeAtoi(b.MaxCombo),
	}
}

type apiError struct {
	Error string `json:"error"`
}

// GetBeatmaps returns every difficulty matching ref: one for a single map,
// all of them for a set. An unknown map yields an empty slice. Records that
// fail validation are dropped.
func (c *Client) GetBeatmaps(ctx context.Context, ref models.BeatmapRef) ([]models.Beatmap, error) {
	params := url.Values{}
	params.Set("k", c.apiKey)
	params.Set(string(ref.Type), ref.ID)
	reqURL := fmt.Sprintf("%s/api/get_beatmaps?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating beatmap request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching beatmap %s: %w", ref, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading beatmap %s response: %w", ref, err)
	}

	// Errors come back as an object instead of the usual array.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var apiErr apiError
		if err := json.Unmarshal(trimmed, &apiErr); err != nil {
			return nil, fmt.Errorf("decoding beatmap %s error response: %w", ref, err)
		}
		return nil, &RemoteError{Message: apiErr.Error}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("beatmap %s lookup returned status %d", ref, resp.StatusCode)
	}

	var raw []apiBeatmap
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding beatmap %s response: %w", ref, err)
	}

	beatmaps := make([]models.Beatmap, 0, len(raw))
	for _, r := range raw {
		b := r.toModel()
		if err := c.validator.ValidateStruct(b); err != nil {
			slog.Warn("Dropping malformed beatmap record", "ref", ref.String(), "error", err)
			continue
		}
		beatmaps = append(beatmaps, b)
	}
	return beatmaps, nil
}
