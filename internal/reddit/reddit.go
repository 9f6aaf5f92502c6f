// Package reddit is the content source: it reads the subreddit's comment
// and submission listings, checks for earlier bot replies and posts chained
// replies through the OAuth API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/util"
)

const (
	DefaultBaseURL  = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	maxRetries     = 3
	defaultBackoff = time.Second
)

type Config struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddit    string

	RequestInterval time.Duration
	Timeout         time.Duration

	// Overrides for testing; empty means the public endpoints.
	BaseURL  string
	TokenURL string
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit status %d, body: %s", e.StatusCode, e.Body)
}

type Client struct {
	username    string
	subreddit   string
	baseURL     string
	client      *http.Client
	rateLimiter *rate.Limiter
	backoff     time.Duration
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	return &Client{
		username:    cfg.Username,
		subreddit:   cfg.Subreddit,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      newAuthedClient(cfg),
		rateLimiter: rate.NewLimiter(limit, 1),
		backoff:     defaultBackoff,
	}
}

// Fetch returns up to limit of the newest items of the given kind, newest first.
func (c *Client) Fetch(ctx context.Context, kind models.Kind, limit int) ([]models.Item, error) {
	var path string
	switch kind {
	case models.KindComment:
		path = "/r/" + c.subreddit + "/comments"
	case models.KindSubmission:
		path = "/r/" + c.subreddit + "/new"
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var l listing
	if err := c.get(ctx, path, q, &l); err != nil {
		return nil, fmt.Errorf("fetching %s listing: %w", kind, err)
	}
	items, err := decodeItems(l.Data.Children)
	if err != nil {
		return nil, fmt.Errorf("decoding %s listing: %w", kind, err)
	}
	return items, nil
}

// HasReplied reports whether the bot already authored a direct reply to item.
func (c *Client) HasReplied(ctx context.Context, item models.Item) (bool, error) {
	var path string
	switch it := item.(type) {
	case *models.Comment:
		path = fmt.Sprintf("/comments/%s/_/%s", strings.TrimPrefix(it.LinkID, "t3_"), it.CommentID)
	case *models.Submission:
		path = "/comments/" + it.SubmissionID
	default:
		return false, fmt.Errorf("unsupported item type %T", item)
	}

	// The thread endpoint answers with [submission listing, comment listing].
	var thread []listing
	if err := c.get(ctx, path, nil, &thread); err != nil {
		return false, fmt.Errorf("fetching thread for %s: %w", item.ID(), err)
	}
	if len(thread) < 2 {
		return false, fmt.Errorf("unexpected thread shape for %s", item.ID())
	}

	children := thread[1].Data.Children
	if _, ok := item.(*models.Comment); ok {
		children = directReplies(children, item.ID())
	}
	for _, author := range commentAuthors(children) {
		if strings.EqualFold(author, c.username) {
			return true, nil
		}
	}
	return false, nil
}

// directReplies finds the target comment in a permalink thread and returns
// its replies.
func directReplies(children []thing, commentID string) []thing {
	for _, ch := range children {
		if ch.Kind != kindComment {
			continue
		}
		var d commentData
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			continue
		}
		if d.ID == commentID {
			return d.Replies.children
		}
	}
	return nil
}

// Reply posts texts as a chain: the first answers item, each later one
// answers the previous reply. It returns the fullnames posted. Items
// authored by the bot itself are never answered.
func (c *Client) Reply(ctx context.Context, item models.Item, texts []string) ([]string, error) {
	if strings.EqualFold(item.Author(), c.username) {
		slog.Warn("Refusing to reply to own item", "id", item.ID(), "kind", item.Kind())
		return nil, nil
	}

	parent := item.Fullname()
	posted := make([]string, 0, len(texts))
	for i, text := range texts {
		name, err := c.comment(ctx, parent, text)
		if err != nil {
			return posted, fmt.Errorf("posting reply %d/%d to %s: %w", i+1, len(texts), item.ID(), err)
		}
		slog.Info("Replied", "parent", parent, "reply", name, "part", i+1, "of", len(texts))
		posted = append(posted, name)
		parent = name
	}
	return posted, nil
}

func (c *Client) comment(ctx context.Context, parent, text string) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", parent)
	form.Set("text", text)

	var resp commentResponse
	if err := c.post(ctx, "/api/comment", form, &resp); err != nil {
		return "", err
	}
	if len(resp.JSON.Errors) > 0 {
		return "", fmt.Errorf("reddit rejected comment: %v", resp.JSON.Errors)
	}
	if len(resp.JSON.Data.Things) == 0 || resp.JSON.Data.Things[0].Data.Name == "" {
		return "", fmt.Errorf("reddit returned no comment for parent %s", parent)
	}
	return resp.JSON.Data.Things[0].Data.Name, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	}, true, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	encoded := form.Encode()
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, false, out)
}

// do sends a request built by newReq, pacing it with the rate limiter and
// retrying on 429 and 5xx. Non-idempotent requests are retried on 429 only,
// since a 5xx or transport error may come back after the write went through.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error), idempotent bool, out any) error {
	return util.RetryWithBackoff(ctx, maxRetries, c.backoff, func(attempt int) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		req, err := newReq()
		if err != nil {
			return err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if idempotent && ctx.Err() == nil {
				return util.Retryable(err, 0)
			}
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return nil
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if !idempotent && resp.StatusCode != http.StatusTooManyRequests {
			return statusErr
		}
		if wait := retryBackoff(resp, attempt, c.backoff); wait > 0 {
			slog.Warn("Reddit request failed, retrying", "status", resp.StatusCode, "attempt", attempt+1, "wait", wait)
			return util.Retryable(statusErr, wait)
		}
		return statusErr
	})
}

// retryBackoff returns how long to wait before retrying resp, or zero when
// the status is not retryable.
func retryBackoff(resp *http.Response, attempt int, base time.Duration) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return base << attempt
	case resp.StatusCode >= 500:
		return base << attempt
	}
	return 0
}
