package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// LyricsOvhProvider fetches plain lyrics from api.lyrics.ovh. It is the
// fallback provider; it never has timestamps.
type LyricsOvhProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewLyricsOvhProvider creates a lyrics.ovh provider.
func NewLyricsOvhProvider(baseURL string, httpClient *http.Client) *LyricsOvhProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LyricsOvhProvider{BaseURL: baseURL, HTTPClient: httpClient}
}

// Name identifies the provider in logs.
func (p *LyricsOvhProvider) Name() string {
	return "lyrics.ovh"
}

// GetLyrics queries /v1/{artist}/{title}.
func (p *LyricsOvhProvider) GetLyrics(ctx context.Context, artist, title string) (Result, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/%s",
		p.BaseURL, url.PathEscape(artist), url.PathEscape(title))

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
		return Result{}, fmt.Errorf("lyrics.ovh returned status %d", resp.StatusCode)
	}

	var payload struct {
		Lyrics string `json:"lyrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return Result{PlainText: payload.Lyrics}, nil
}
