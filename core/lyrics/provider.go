package lyrics

import (
	"context"
	"errors"

	"github.com/DucAnhBoDoi/Music-App/logger"
)

// ErrNotFound means no provider had lyrics for the track. Absence of lyrics
// is a normal outcome, not a failure.
var ErrNotFound = errors.New("lyrics not found")

// Result is one provider's payload: plain text, synced LRC text, or both.
type Result struct {
	PlainText  string
	SyncedText string
}

// Empty reports whether the result carries no lyrics at all.
func (r Result) Empty() bool {
	return r.PlainText == "" && r.SyncedText == ""
}

// Provider fetches lyrics for a track by artist and title.
type Provider interface {
	GetLyrics(ctx context.Context, artist, title string) (Result, error)
	Name() string
}

// Chain tries providers in order and returns the first non-empty result.
type Chain struct {
	providers []Provider
}

// NewChain builds a provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// GetLyrics queries each provider in sequence; the first success wins.
// Returns ErrNotFound when every provider fails or comes back empty.
func (c *Chain) GetLyrics(ctx context.Context, artist, title string) (Result, error) {
	for _, p := range c.providers {
		result, err := p.GetLyrics(ctx, artist, title)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			logger.Debug("lyrics provider failed",
				logger.String("provider", p.Name()),
				logger.String("artist", artist),
				logger.String("title", title),
				logger.ErrorField(err))
			continue
		}
		if !result.Empty() {
			return result, nil
		}
	}
	return Result{}, ErrNotFound
}
