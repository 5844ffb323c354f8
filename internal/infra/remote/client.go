// Package remote provides a client for the remote lookup/transcoding service.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// DefaultBaseURL is the public endpoint of the remote service.
const DefaultBaseURL = "https://apikeyreal.vercel.app/api"

const statusSuccess = "success"

var (
	// ErrUnsuccessful is returned when a 200 response lacks status "success".
	ErrUnsuccessful = errors.New("remote service reported failure")
	// ErrNoResults is returned when a search yields an empty result set.
	ErrNoResults = errors.New("remote search returned no results")
)

// StatusError indicates a non-200 response.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote service http status=%d path=%s", e.StatusCode, e.Path)
}

// Client talks to the remote service. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// envelope is the common shape of /info, /stream and /download responses.
type envelope struct {
	Status string          `json:"status"`
	URL    string          `json:"url"`
	Data   json.RawMessage `json:"data"`
}

type infoData struct {
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Thumbnail string `json:"thumbnail"`
}

// UnmarshalJSON accepts a duration given as a string, a number or null.
func (d *infoData) UnmarshalJSON(b []byte) error {
	var raw struct {
		Title     string          `json:"title"`
		Duration  json.RawMessage `json:"duration"`
		Thumbnail string          `json:"thumbnail"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Title = raw.Title
	d.Thumbnail = raw.Thumbnail
	d.Duration = durationField(raw.Duration)
	return nil
}

type searchRow struct {
	VideoID   string          `json:"video_id"`
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Duration  json.RawMessage `json:"duration"`
	Thumbnail string          `json:"thumbnail"`
	URL       string          `json:"url"`
}

// Search issues GET /search?q=<query>. limit <= 0 omits the limit parameter.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var rows []searchRow
	if err := c.getJSON(ctx, "/search?"+params.Encode(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoResults
	}

	results := make([]domain.SearchResult, 0, len(rows))
	for _, r := range rows {
		id := r.VideoID
		if id == "" {
			id = r.ID
		}
		results = append(results, domain.SearchResult{
			ID:        id,
			Title:     r.Title,
			Duration:  durationField(r.Duration),
			Thumbnail: r.Thumbnail,
			Link:      r.URL,
		})
	}
	return results, nil
}

// LookupMetadata issues GET /info/{id}.
func (c *Client) LookupMetadata(ctx context.Context, id string) (*domain.Metadata, error) {
	env, err := c.getEnvelope(ctx, "/info/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var info infoData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &info); err != nil {
			return nil, fmt.Errorf("failed to decode info payload: %w", err)
		}
	}

	return domain.NewMetadata(info.Title, info.Duration, info.Thumbnail, domain.RefFromID(id)), nil
}

// ResolveStreamURL issues GET /stream/{id}.
func (c *Client) ResolveStreamURL(ctx context.Context, id string) (string, error) {
	return c.getURL(ctx, "/stream/"+url.PathEscape(id))
}

// RequestDownloadURL issues GET /download/{id}. The URL points at a
// transcoded file and is only used for file acquisition.
func (c *Client) RequestDownloadURL(ctx context.Context, id string) (string, error) {
	return c.getURL(ctx, "/download/"+url.PathEscape(id))
}

func (c *Client) getURL(ctx context.Context, path string) (string, error) {
	env, err := c.getEnvelope(ctx, path)
	if err != nil {
		return "", err
	}
	if env.URL == "" {
		return "", ErrUnsuccessful
	}
	return env.URL, nil
}

// getEnvelope fetches path and applies the success gate.
func (c *Client) getEnvelope(ctx context.Context, path string) (*envelope, error) {
	var env envelope
	if err := c.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	if env.Status != statusSuccess {
		return nil, ErrUnsuccessful
	}
	return &env, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// durationField renders a JSON duration (string, number or null) as display text.
func durationField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return domain.FormatDuration(int(n))
	}
	return ""
}
