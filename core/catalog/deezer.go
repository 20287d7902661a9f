package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/lo"

	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
	"github.com/DucAnhBoDoi/Music-App/repository"
)

// Client is the track catalog adapter over the Deezer public API. Fetched
// tracks are normalized into model.Track and upserted into the local cache;
// when Deezer is unreachable the chart is served from that cache instead.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	tracks     repository.TrackRepository
}

// NewClient creates a catalog client. tracks may be nil, which disables the
// local cache (used in tests).
func NewClient(baseURL string, httpClient *http.Client, tracks repository.TrackRepository) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		tracks:     tracks,
	}
}

// deezerTrack mirrors the subset of the Deezer track payload the app uses.
type deezerTrack struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		CoverMedium string `json:"cover_medium"`
		CoverSmall  string `json:"cover_small"`
	} `json:"album"`
	Duration int    `json:"duration"`
	Preview  string `json:"preview"`
}

type deezerList struct {
	Data []deezerTrack `json:"data"`
}

func normalize(t deezerTrack) model.Track {
	cover := t.Album.CoverMedium
	if cover == "" {
		cover = t.Album.CoverSmall
	}
	return model.Track{
		ID:           strconv.FormatInt(t.ID, 10),
		Title:        t.Title,
		Artist:       t.Artist.Name,
		Cover:        cover,
		DurationHint: t.Duration,
		PreviewURL:   t.Preview,
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchChart returns the current chart tracks. On network failure it falls
// back to the most recently cached tracks, so browsing degrades instead of
// breaking.
func (c *Client) FetchChart(ctx context.Context, limit int) ([]model.Track, error) {
	var list deezerList
	err := c.getJSON(ctx, fmt.Sprintf("/chart/0/tracks?limit=%d", limit), &list)
	if err != nil {
		logger.Warn("chart fetch failed, serving cached tracks", logger.ErrorField(err))
		if c.tracks != nil {
			cached, cacheErr := c.tracks.RecentTracks(limit)
			if cacheErr == nil && len(cached) > 0 {
				return cached, nil
			}
		}
		return nil, err
	}

	tracks := lo.Map(list.Data, func(t deezerTrack, _ int) model.Track {
		return normalize(t)
	})
	c.cacheTracks(tracks)
	return tracks, nil
}

// Search queries the catalog for tracks matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.Track, error) {
	var list deezerList
	endpoint := fmt.Sprintf("/search?q=%s&limit=%d", url.QueryEscape(query), limit)
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return nil, err
	}

	tracks := lo.Map(list.Data, func(t deezerTrack, _ int) model.Track {
		return normalize(t)
	})
	c.cacheTracks(tracks)
	return tracks, nil
}

// RefreshTrack re-resolves a single track, returning a Track with a fresh
// preview URL. The playback engine calls this when a stored URL has expired.
func (c *Client) RefreshTrack(ctx context.Context, id string) (model.Track, error) {
	var t deezerTrack
	if err := c.getJSON(ctx, "/track/"+url.PathEscape(id), &t); err != nil {
		return model.Track{}, err
	}
	if t.ID == 0 {
		return model.Track{}, fmt.Errorf("track %s not found", id)
	}

	track := normalize(t)
	c.cacheTracks([]model.Track{track})
	return track, nil
}

func (c *Client) cacheTracks(tracks []model.Track) {
	if c.tracks == nil || len(tracks) == 0 {
		return
	}
	if err := c.tracks.UpsertTracks(tracks); err != nil {
		logger.Warn("track cache upsert failed", logger.ErrorField(err))
	}
}
