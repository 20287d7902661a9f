package lyrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
)

// FetchState describes where the synchronizer is for the current track.
type FetchState string

const (
	FetchIdle    FetchState = "idle"    // no track playing
	FetchLoading FetchState = "loading" // request in flight
	FetchReady   FetchState = "ready"   // lyrics available
	FetchEmpty   FetchState = "empty"   // both providers came back empty
	FetchError   FetchState = "error"   // providers failed; retry possible
)

// Fetcher is what the synchronizer fetches through (the provider chain).
type Fetcher interface {
	GetLyrics(ctx context.Context, artist, title string) (Result, error)
}

// View is the lyrics read model for the UI: the parsed lines plus which one
// is active at the last observed playback position.
type View struct {
	TrackID     string     `json:"trackId"`
	State       FetchState `json:"state"`
	PlainText   string     `json:"plainText,omitempty"`
	Lines       []Line     `json:"lines,omitempty"`
	ActiveIndex int        `json:"activeIndex"`
}

// Synchronizer follows the playback engine's state stream: it re-fetches
// lyrics whenever the current track id changes and resolves the active line
// from the live position. Results are keyed by track id, so a slow response
// for a track the user has already skipped past is discarded rather than
// clobbering fresh lyrics.
type Synchronizer struct {
	fetcher Fetcher
	timeout time.Duration

	mu         sync.Mutex
	trackID    string
	state      FetchState
	plain      string
	lines      []Line
	positionMs int64
	artist     string
	title      string
	cancel     context.CancelFunc
}

// NewSynchronizer creates a synchronizer over the given fetcher.
func NewSynchronizer(fetcher Fetcher, timeout time.Duration) *Synchronizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Synchronizer{
		fetcher: fetcher,
		timeout: timeout,
		state:   FetchIdle,
	}
}

// Run consumes the engine's state stream until the channel closes. Intended
// to run as a goroutine alongside the engine.
func (s *Synchronizer) Run(states <-chan model.PlayerState) {
	for state := range states {
		s.Observe(state)
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// Observe feeds one engine snapshot into the synchronizer.
func (s *Synchronizer) Observe(state model.PlayerState) {
	s.mu.Lock()

	s.positionMs = state.PositionMs

	if state.CurrentTrack == nil {
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.trackID = ""
		s.state = FetchIdle
		s.plain = ""
		s.lines = nil
		s.mu.Unlock()
		return
	}

	track := *state.CurrentTrack
	if track.ID == s.trackID {
		s.mu.Unlock()
		return
	}

	// New track: supersede any in-flight fetch and start over.
	if s.cancel != nil {
		s.cancel()
	}
	s.trackID = track.ID
	s.artist = track.Artist
	s.title = track.Title
	s.state = FetchLoading
	s.plain = ""
	s.lines = nil

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.cancel = cancel
	s.mu.Unlock()

	go s.fetch(ctx, track.ID, track.Artist, track.Title)
}

// Retry re-fetches lyrics for the current track after an error or empty
// result. User-triggered.
func (s *Synchronizer) Retry() {
	s.mu.Lock()
	if s.trackID == "" {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	id, artist, title := s.trackID, s.artist, s.title
	s.state = FetchLoading

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.cancel = cancel
	s.mu.Unlock()

	go s.fetch(ctx, id, artist, title)
}

func (s *Synchronizer) fetch(ctx context.Context, trackID, artist, title string) {
	result, err := s.fetcher.GetLyrics(ctx, artist, title)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The stale-response guard: only the track that is still current may
	// publish its result.
	if s.trackID != trackID {
		logger.Debug("discarding stale lyrics response", logger.String("trackId", trackID))
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			s.state = FetchEmpty
		case errors.Is(ctx.Err(), context.Canceled):
			// Superseded by a newer fetch for the same track; that fetch
			// owns the state now.
		default:
			// Provider failure or timeout: surface it so the user can retry.
			s.state = FetchError
			logger.Warn("lyrics fetch failed",
				logger.String("trackId", trackID),
				logger.ErrorField(err))
		}
		return
	}

	s.plain = result.PlainText
	if result.SyncedText != "" {
		s.lines = ParseLRC(result.SyncedText)
	}
	if s.plain == "" && len(s.lines) == 0 {
		s.state = FetchEmpty
		return
	}
	s.state = FetchReady
}

// Snapshot returns the current lyrics view.
func (s *Synchronizer) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)

	return View{
		TrackID:     s.trackID,
		State:       s.state,
		PlainText:   s.plain,
		Lines:       lines,
		ActiveIndex: ResolveIndex(s.lines, s.positionMs),
	}
}
