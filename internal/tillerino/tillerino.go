// Package tillerino fetches performance point estimates for a single
// beatmap from the Tillerino beatmapinfo endpoint.
package tillerino

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pauljones0/beatmaplinker/internal/models"
)

const (
	DefaultBaseURL = "http://bot.tillerino.org:1666"
	DefaultAPIKey  = "00000000000000000000000000000000"
	DefaultWait    = 1000
)

type Client struct {
	apiKey     string
	wait       int
	baseURL    string
	httpClient *http.Client
}

func New(apiKey string, wait int, timeout time.Duration) *Client {
	return NewWithBaseURL(apiKey, wait, DefaultBaseURL, &http.Client{Timeout: timeout})
}

// NewWithBaseURL creates a client against a custom base URL (for testing).
func NewWithBaseURL(apiKey string, wait int, baseURL string, httpClient *http.Client) *Client {
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{apiKey: apiKey, wait: wait, baseURL: baseURL, httpClient: httpClient}
}

// Enabled reports whether a real key was configured.
func (c *Client) Enabled() bool {
	return c.apiKey != DefaultAPIKey
}

type beatmapInfo struct {
	PPForAcc struct {
		Entry []struct {
			Key   float64 `json:"key"`
			Value float64 `json:"value"`
		} `json:"entry"`
	} `json:"ppForAcc"`
}

func eligible(group []models.Beatmap) bool {
	if len(group) != 1 || group[0].Mode != models.ModeStandard {
		return false
	}
	switch group[0].Approved {
	case models.ApprovalRanked, models.ApprovalApproved, models.ApprovalQualified, models.ApprovalLoved:
		return true
	}
	return false
}

// GetPPInfo returns the PP table for a one-difficulty standard group, or nil
// when the map is not eligible or the lookup fails. Failures are logged and
// never propagated.
func (c *Client) GetPPInfo(ctx context.Context, group []models.Beatmap) models.PPInfo {
	if !c.Enabled() || !eligible(group) {
		return nil
	}
	beatmapID := group[0].BeatmapID

	params := url.Values{}
	params.Set("k", c.apiKey)
	params.Set("wait", strconv.Itoa(c.wait))
	params.Set("beatmapid", beatmapID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/beatmapinfo?"+params.Encode(), nil)
	if err != nil {
		slog.Warn("Failed to build PP request", "beatmap_id", beatmapID, "error", err)
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("PP lookup failed", "beatmap_id", beatmapID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("PP lookup returned non-OK status", "beatmap_id", beatmapID, "status", resp.StatusCode)
		return nil
	}

	var info beatmapInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		slog.Warn("Failed to decode PP response", "beatmap_id", beatmapID, "error", err)
		return nil
	}
	if len(info.PPForAcc.Entry) == 0 {
		return nil
	}

	pp := make(models.PPInfo, len(info.PPForAcc.Entry))
	for _, e := range info.PPForAcc.Entry {
		pp[accuracyKey(e.Key)] = e.Value
	}
	return pp
}

// accuracyKey turns an accuracy fraction into its percentage label: 0.95 -> "95".
func accuracyKey(acc float64) string {
	return strconv.FormatFloat(math.Round(acc*10000)/100, 'f', -1, 64)
}
