package lyrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DucAnhBoDoi/Music-App/model"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	results map[string]Result // keyed by title
	errs    map[string]error
	block   map[string]chan struct{}
	calls   []string
}

func (f *scriptedFetcher) GetLyrics(ctx context.Context, artist, title string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, title)
	blocker := f.block[title]
	result := f.results[title]
	err := f.errs[title]
	f.mu.Unlock()

	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return result, err
}

func playingState(id, artist, title string, positionMs int64) model.PlayerState {
	return model.PlayerState{
		CurrentTrack: &model.Track{ID: id, Artist: artist, Title: title},
		IsPlaying:    true,
		PositionMs:   positionMs,
	}
}

func waitForState(t *testing.T, s *Synchronizer, want FetchState) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v := s.Snapshot(); v.State == want {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("synchronizer never reached state %q, at %q", want, s.Snapshot().State)
	return View{}
}

func TestSynchronizerFetchesOnTrackChange(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: map[string]Result{
			"Song A": {SyncedText: "[00:01.00]first\n[00:05.00]second"},
		},
	}
	s := NewSynchronizer(fetcher, time.Second)

	s.Observe(playingState("1", "X", "Song A", 0))
	view := waitForState(t, s, FetchReady)

	if view.TrackID != "1" {
		t.Errorf("trackID = %s, want 1", view.TrackID)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(view.Lines))
	}
}

func TestSynchronizerResolvesActiveLine(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: map[string]Result{
			"Song A": {SyncedText: "[00:01.00]first\n[00:05.00]second"},
		},
	}
	s := NewSynchronizer(fetcher, time.Second)

	s.Observe(playingState("1", "X", "Song A", 0))
	waitForState(t, s, FetchReady)

	tests := []struct {
		positionMs int64
		want       int
	}{
		{0, -1},
		{1000, 0},
		{4999, 0},
		{5000, 1},
		{60000, 1},
	}
	for _, tt := range tests {
		s.Observe(playingState("1", "X", "Song A", tt.positionMs))
		if got := s.Snapshot().ActiveIndex; got != tt.want {
			t.Errorf("ActiveIndex at %dms = %d, want %d", tt.positionMs, got, tt.want)
		}
	}
}

func TestSynchronizerDiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	fetcher := &scriptedFetcher{
		results: map[string]Result{
			"Slow": {PlainText: "slow lyrics"},
			"Fast": {PlainText: "fast lyrics"},
		},
		block: map[string]chan struct{}{"Slow": release},
	}
	s := NewSynchronizer(fetcher, time.Minute)

	s.Observe(playingState("1", "X", "Slow", 0))
	s.Observe(playingState("2", "X", "Fast", 0))
	waitForState(t, s, FetchReady)

	// Let the superseded fetch come back late.
	close(release)
	time.Sleep(50 * time.Millisecond)

	view := s.Snapshot()
	if view.TrackID != "2" {
		t.Errorf("trackID = %s, want 2", view.TrackID)
	}
	if view.PlainText != "fast lyrics" {
		t.Errorf("plainText = %q, the stale response must not clobber it", view.PlainText)
	}
}

func TestSynchronizerSameTrackDoesNotRefetch(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: map[string]Result{"Song A": {PlainText: "words"}},
	}
	s := NewSynchronizer(fetcher, time.Second)

	s.Observe(playingState("1", "X", "Song A", 0))
	waitForState(t, s, FetchReady)
	s.Observe(playingState("1", "X", "Song A", 3000))
	s.Observe(playingState("1", "X", "Song A", 6000))

	fetcher.mu.Lock()
	calls := len(fetcher.calls)
	fetcher.mu.Unlock()
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestSynchronizerEmptyAndErrorStates(t *testing.T) {
	fetcher := &scriptedFetcher{
		errs: map[string]error{
			"Missing": ErrNotFound,
			"Broken":  errors.New("upstream down"),
		},
	}
	s := NewSynchronizer(fetcher, time.Second)

	s.Observe(playingState("1", "X", "Missing", 0))
	waitForState(t, s, FetchEmpty)

	s.Observe(playingState("2", "X", "Broken", 0))
	waitForState(t, s, FetchError)
}

func TestSynchronizerTimeoutSurfacesError(t *testing.T) {
	never := make(chan struct{})
	fetcher := &scriptedFetcher{
		block: map[string]chan struct{}{"Slow": never},
	}
	s := NewSynchronizer(fetcher, 50*time.Millisecond)

	s.Observe(playingState("1", "X", "Slow", 0))

	// A provider that never answers must end in an error state the user
	// can retry from, not hang in loading forever.
	view := waitForState(t, s, FetchError)
	if view.TrackID != "1" {
		t.Errorf("trackID = %s, want 1", view.TrackID)
	}
}

func TestSynchronizerRetrySupersedesInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	fetcher := &scriptedFetcher{
		results: map[string]Result{"Song A": {PlainText: "words"}},
		block:   map[string]chan struct{}{"Song A": release},
	}
	s := NewSynchronizer(fetcher, time.Minute)

	s.Observe(playingState("1", "X", "Song A", 0))
	s.Retry()

	// The first fetch was cancelled by Retry; its return must not flip the
	// state while the second fetch is still in flight.
	time.Sleep(50 * time.Millisecond)
	if got := s.Snapshot().State; got != FetchLoading {
		t.Fatalf("state = %q, want %q while the retry is in flight", got, FetchLoading)
	}

	close(release)
	view := waitForState(t, s, FetchReady)
	if view.PlainText != "words" {
		t.Errorf("plainText = %q, want words", view.PlainText)
	}
}

func TestSynchronizerRetryRecovers(t *testing.T) {
	fetcher := &scriptedFetcher{
		errs: map[string]error{"Song A": errors.New("flaky")},
	}
	s := NewSynchronizer(fetcher, time.Second)

	s.Observe(playingState("1", "X", "Song A", 0))
	waitForState(t, s, FetchError)

	fetcher.mu.Lock()
	delete(fetcher.errs, "Song A")
	fetcher.results = map[string]Result{"Song A": {PlainText: "recovered"}}
	fetcher.mu.Unlock()

	s.Retry()
	view := waitForState(t, s, FetchReady)
	if view.PlainText != "recovered" {
		t.Errorf("plainText = %q, want recovered", view.PlainText)
	}
}

func TestSynchronizerIdleWhenNothingPlays(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: map[string]Result{"Song A": {PlainText: "words"}},
	}
	s := NewSynchronizer(fetcher, time.Second)

	s.Observe(playingState("1", "X", "Song A", 0))
	waitForState(t, s, FetchReady)

	s.Observe(model.PlayerState{})
	view := s.Snapshot()
	if view.State != FetchIdle || view.TrackID != "" || view.PlainText != "" {
		t.Errorf("view after stop = %+v, want idle and empty", view)
	}
}
