package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// LrclibProvider fetches lyrics from lrclib.net, which serves both plain
// and synced (LRC) text. It is the first provider in the default chain
// because it is the only one with timestamps.
type LrclibProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewLrclibProvider creates an lrclib.net provider.
func NewLrclibProvider(baseURL string, httpClient *http.Client) *LrclibProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LrclibProvider{BaseURL: baseURL, HTTPClient: httpClient}
}

// Name identifies the provider in logs.
func (p *LrclibProvider) Name() string {
	return "lrclib"
}

// GetLyrics queries /api/get by artist and track name.
func (p *LrclibProvider) GetLyrics(ctx context.Context, artist, title string) (Result, error) {
	endpoint := fmt.Sprintf("%s/api/get?artist_name=%s&track_name=%s",
		p.BaseURL, url.QueryEscape(artist), url.QueryEscape(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Result{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("lrclib returned status %d", resp.StatusCode)
	}

	var payload struct {
		PlainLyrics  string `json:"plainLyrics"`
		SyncedLyrics string `json:"syncedLyrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return Result{PlainText: payload.PlainLyrics, SyncedText: payload.SyncedLyrics}, nil
}
