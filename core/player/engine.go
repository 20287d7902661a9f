package player

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
)

// ErrNoPlayableSource means a track had no playable URL even after a catalog
// refresh attempt. The engine stays in its prior stable state.
var ErrNoPlayableSource = errors.New("no playable source for track")

// engineState is the engine's lifecycle state machine. Transitions are
// validated by the command handlers; a command that arrives mid-transition
// is dropped rather than queued.
type engineState int

const (
	stateIdle engineState = iota
	stateLoading
	statePlaying
	statePaused
	stateEnding
)

// CatalogRefresher re-resolves a track whose preview URL has gone stale.
type CatalogRefresher interface {
	RefreshTrack(ctx context.Context, id string) (model.Track, error)
}

// HistoryRecorder logs a track as listened-to. Recording happens when
// loading begins, not on playback success: a track the user chose counts
// for recency even if the audio later fails.
type HistoryRecorder interface {
	RecordHistory(track model.Track)
}

// ArtworkWarmer pre-fetches cover art for upcoming tracks.
type ArtworkWarmer interface {
	WarmArtwork(ctx context.Context, track model.Track)
}

type transport struct {
	isPlaying  bool
	positionMs int64
	durationMs int64
}

// Options configures a new Engine. Catalog, History and Artwork are
// optional; nil disables the corresponding side effect.
type Options struct {
	Catalog          CatalogRefresher
	History          HistoryRecorder
	Artwork          ArtworkWarmer
	PrefetchCapacity int
	PrefetchDelay    time.Duration
	// Probe checks whether a preview URL is still alive. Nil installs the
	// default HEAD probe.
	Probe func(ctx context.Context, url string) bool
	// RandSeed seeds the shuffle source; 0 uses the clock.
	RandSeed int64
}

// Engine is the playback orchestrator: the sole owner of the live audio
// handle and the sole authority on what plays next. It is process-wide; UI
// surfaces observe it through Subscribe and drive it through commands.
type Engine struct {
	device  Device
	catalog CatalogRefresher
	history HistoryRecorder
	artwork ArtworkWarmer

	prefetch      *PrefetchCache
	prefetchDelay time.Duration
	probe         func(ctx context.Context, url string) bool

	mu            sync.Mutex
	st            engineState
	queue         []model.Track
	index         int
	current       *model.Track
	repeat        model.RepeatMode
	shuffle       bool
	transport     transport
	handle        Handle
	volume        float64
	loadSeq       uint64
	advancing     bool
	lastErr       string
	prefetchTimer *time.Timer
	rng           *rand.Rand
	subs          map[string]chan model.PlayerState
	closed        bool
}

// NewEngine creates an idle engine bound to the given audio device.
func NewEngine(device Device, opts Options) *Engine {
	if opts.PrefetchDelay <= 0 {
		opts.PrefetchDelay = 1500 * time.Millisecond
	}
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	probe := opts.Probe
	if probe == nil {
		probe = defaultProbe
	}
	return &Engine{
		device:        device,
		catalog:       opts.Catalog,
		history:       opts.History,
		artwork:       opts.Artwork,
		prefetch:      NewPrefetchCache(opts.PrefetchCapacity),
		prefetchDelay: opts.PrefetchDelay,
		probe:         probe,
		repeat:        model.RepeatNone,
		volume:        1.0,
		rng:           rand.New(rand.NewSource(seed)),
		subs:          make(map[string]chan model.PlayerState),
	}
}

// defaultProbe HEAD-checks the URL with a short timeout.
func defaultProbe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// ---- published state ----

// Subscribe registers a state observer. The returned channel receives every
// published snapshot, starting with the current one; a slow consumer skips
// intermediate snapshots rather than blocking the engine.
func (e *Engine) Subscribe() (string, <-chan model.PlayerState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan model.PlayerState, 8)
	e.subs[id] = ch
	ch <- e.snapshotLocked()
	return id, ch
}

// Unsubscribe removes an observer and closes its channel.
func (e *Engine) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.subs[id]; ok {
		delete(e.subs, id)
		close(ch)
	}
}

// State returns the current published snapshot.
func (e *Engine) State() model.PlayerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() model.PlayerState {
	queue := make([]model.Track, len(e.queue))
	copy(queue, e.queue)

	var current *model.Track
	if e.current != nil {
		c := *e.current
		current = &c
	}

	return model.PlayerState{
		CurrentTrack: current,
		Queue:        queue,
		Index:        e.index,
		IsPlaying:    e.transport.isPlaying,
		PositionMs:   e.transport.positionMs,
		DurationMs:   e.transport.durationMs,
		Repeat:       e.repeat,
		Shuffle:      e.shuffle,
		LastError:    e.lastErr,
	}
}

func (e *Engine) publishLocked() {
	snap := e.snapshotLocked()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// ---- load sequencing ----

// newLoadSeqLocked invalidates every in-flight load and returns the token
// for the new one. Any step of a superseded load checks its token and backs
// out, releasing whatever it created.
func (e *Engine) newLoadSeqLocked() uint64 {
	e.loadSeq++
	return e.loadSeq
}

func (e *Engine) isCurrentLoad(seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return seq == e.loadSeq && !e.closed
}

// ---- commands ----

// Play starts the given track inside its launch context. Queue and index
// are reflected immediately so the UI shows the new context before audio is
// ready; the load itself may still be superseded by a newer Play.
func (e *Engine) Play(ctx context.Context, track model.Track, queue []model.Track, index int) error {
	if len(queue) == 0 {
		queue = []model.Track{track}
		index = 0
	}
	if index < 0 || index >= len(queue) {
		index = 0
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.New("engine closed")
	}
	seq := e.newLoadSeqLocked()
	e.queue = make([]model.Track, len(queue))
	copy(e.queue, queue)
	e.index = index
	e.st = stateLoading
	e.lastErr = ""
	e.cancelPrefetchTimerLocked()
	e.publishLocked()
	e.mu.Unlock()

	if e.history != nil {
		e.history.RecordHistory(track)
	}

	return e.loadAndPlay(ctx, seq, track)
}

// loadAndPlay runs the load pipeline for one track under one load token.
func (e *Engine) loadAndPlay(ctx context.Context, seq uint64, track model.Track) error {
	// Step 1: make sure we have a live URL, refreshing through the catalog
	// when the stored one is missing or dead. Refresh failure is non-fatal;
	// only the complete absence of a playable URL aborts.
	if track.PreviewURL == "" || !e.probe(ctx, track.PreviewURL) {
		refreshed, err := e.refreshTrack(ctx, track)
		if err != nil {
			logger.Warn("track refresh failed",
				logger.String("trackId", track.ID),
				logger.ErrorField(err))
		} else {
			track = refreshed
		}
	}
	if track.PreviewURL == "" {
		e.failLoad(seq, ErrNoPlayableSource, true)
		return ErrNoPlayableSource
	}

	if !e.isCurrentLoad(seq) {
		return nil
	}

	// Step 2: fully release the outgoing handle before the new one starts.
	e.mu.Lock()
	old := e.handle
	e.handle = nil
	e.mu.Unlock()
	releaseHandle(old)

	// Step 3/4: adopt a warm handle when prefetch has one, else cold-load.
	handle, err := e.acquireHandle(ctx, seq, track)
	if err != nil {
		e.failLoad(seq, err, false)
		return ErrNoPlayableSource
	}
	if handle == nil {
		// Superseded mid-load; acquireHandle already cleaned up.
		return nil
	}

	// Step 5: commit and schedule prefetch.
	e.mu.Lock()
	if seq != e.loadSeq || e.closed {
		e.mu.Unlock()
		releaseHandle(handle)
		return nil
	}
	e.handle = handle
	t := track
	e.current = &t
	if e.index < len(e.queue) && e.queue[e.index].ID == track.ID {
		e.queue[e.index] = track
	}
	e.st = statePlaying
	e.transport = transport{
		isPlaying:  true,
		positionMs: 0,
		durationMs: int64(track.DurationHint) * 1000,
	}
	e.lastErr = ""
	e.publishLocked()
	e.schedulePrefetchLocked(seq)
	e.mu.Unlock()

	logger.Info("track started",
		logger.String("trackId", track.ID),
		logger.String("title", track.Title),
		logger.String("artist", track.Artist))
	return nil
}

// refreshTrack asks the catalog for a fresh copy of the track, keeping the
// original fields for anything the catalog leaves blank.
func (e *Engine) refreshTrack(ctx context.Context, track model.Track) (model.Track, error) {
	if e.catalog == nil {
		return track, errors.New("no catalog configured")
	}
	fresh, err := e.catalog.RefreshTrack(ctx, track.ID)
	if err != nil {
		return track, err
	}
	if fresh.PreviewURL != "" {
		track.PreviewURL = fresh.PreviewURL
	}
	if fresh.Cover != "" {
		track.Cover = fresh.Cover
	}
	if fresh.Artist != "" {
		track.Artist = fresh.Artist
	}
	return track, nil
}

// acquireHandle returns a playing handle for the track, via prefetch
// adoption or a cold load. Returns (nil, nil) when the load was superseded.
func (e *Engine) acquireHandle(ctx context.Context, seq uint64, track model.Track) (Handle, error) {
	e.mu.Lock()
	volume := e.volume
	e.mu.Unlock()

	if warm := e.prefetch.Take(track.ID); warm != nil {
		if h, err := e.adoptWarmHandle(ctx, seq, warm, volume); err == nil {
			return h, nil
		}
		// Adoption failed; fall through to a cold load.
	}

	if !e.isCurrentLoad(seq) {
		return nil, nil
	}

	handle, err := e.device.CreateHandle(ctx, track.PreviewURL, HandleOptions{
		Autoplay: true,
		Volume:   volume,
	})
	if err != nil {
		logger.Error("handle creation failed",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		return nil, ErrNoPlayableSource
	}

	if !e.isCurrentLoad(seq) {
		releaseHandle(handle)
		return nil, nil
	}
	handle.OnStatus(func(s Status) { e.onStatus(seq, s) })
	return handle, nil
}

// adoptWarmHandle rewinds a prefetched, zero-volume handle and promotes it
// to the live one. This is the primary latency optimization: no new decode
// pipeline is built for a warmed neighbour.
func (e *Engine) adoptWarmHandle(ctx context.Context, seq uint64, warm Handle, volume float64) (Handle, error) {
	if err := warm.Seek(ctx, 0); err != nil {
		releaseHandle(warm)
		return nil, err
	}
	if err := warm.SetVolume(ctx, volume); err != nil {
		releaseHandle(warm)
		return nil, err
	}
	warm.OnStatus(func(s Status) { e.onStatus(seq, s) })
	if err := warm.Play(ctx); err != nil {
		releaseHandle(warm)
		return nil, err
	}
	logger.Debug("adopted prefetched handle")
	return warm, nil
}

// failLoad records a load failure. keepStable leaves the engine in its
// prior stable state (pre-release failures); otherwise the slot goes idle.
// The previous track, if its handle was already released, stays stopped —
// a stale handle is never silently resumed.
func (e *Engine) failLoad(seq uint64, err error, keepStable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.loadSeq || e.closed {
		return
	}
	e.lastErr = err.Error()
	if keepStable && e.handle != nil {
		if e.transport.isPlaying {
			e.st = statePlaying
		} else {
			e.st = statePaused
		}
	} else {
		e.st = stateIdle
		e.transport = transport{}
	}
	e.publishLocked()
}

// TogglePlayPause pauses when playing and resumes when paused. No-op while
// idle. The live device status decides, not the mirrored flag.
func (e *Engine) TogglePlayPause(ctx context.Context) error {
	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()
	if handle == nil {
		return nil
	}

	status, err := handle.GetStatus(ctx)
	if err != nil {
		logger.Warn("status query failed", logger.ErrorField(err))
		return err
	}

	if status.IsPlaying {
		if err := handle.Pause(ctx); err != nil {
			return err
		}
		e.mu.Lock()
		e.transport.isPlaying = false
		e.st = statePaused
		e.publishLocked()
		e.mu.Unlock()
		return nil
	}

	if err := handle.Play(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	e.transport.isPlaying = true
	e.st = statePlaying
	e.publishLocked()
	e.mu.Unlock()
	return nil
}

// SeekTo seeks to fraction (0..1) of the known duration. Valid only while a
// duration is known. Callers pass normalized values; the engine does not
// clamp.
func (e *Engine) SeekTo(ctx context.Context, fraction float64) error {
	e.mu.Lock()
	handle := e.handle
	duration := e.transport.durationMs
	e.mu.Unlock()

	if handle == nil || duration <= 0 {
		return nil
	}
	positionMs := int64(fraction * float64(duration))
	if err := handle.Seek(ctx, positionMs); err != nil {
		return err
	}

	e.mu.Lock()
	e.transport.positionMs = positionMs
	e.publishLocked()
	e.mu.Unlock()
	return nil
}

// SetVolume forwards the volume (0..1) to the active handle. The value is
// remembered so the next track starts at the same level.
func (e *Engine) SetVolume(ctx context.Context, volume float64) error {
	e.mu.Lock()
	e.volume = volume
	handle := e.handle
	e.mu.Unlock()

	if handle == nil {
		return nil
	}
	return handle.SetVolume(ctx, volume)
}

// SetRepeat updates the repeat mode.
func (e *Engine) SetRepeat(mode model.RepeatMode) {
	if !mode.Valid() {
		return
	}
	e.mu.Lock()
	e.repeat = mode
	e.publishLocked()
	e.mu.Unlock()
}

// SetShuffle updates the shuffle flag.
func (e *Engine) SetShuffle(on bool) {
	e.mu.Lock()
	e.shuffle = on
	e.publishLocked()
	e.mu.Unlock()
}

// PlayNext advances one step by the advance policy. A request arriving
// while another transition is in flight is dropped.
func (e *Engine) PlayNext(ctx context.Context) error {
	return e.advance(ctx, false, false)
}

// PlayPrevious steps backwards. At index 0, unless repeat is all, the
// current track restarts from the top instead of wrapping or stopping.
func (e *Engine) PlayPrevious(ctx context.Context) error {
	return e.advance(ctx, true, false)
}

// advance is the single transition path for explicit next/previous and
// natural end-of-track. The advancing flag is the re-entrancy guard: one
// transition at a time, extra requests are dropped silently.
func (e *Engine) advance(ctx context.Context, backwards, natural bool) error {
	e.mu.Lock()
	if e.closed || e.advancing || len(e.queue) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.advancing = true
	length := len(e.queue)
	i := e.index
	repeat := e.repeat
	shuffle := e.shuffle
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.advancing = false
		e.mu.Unlock()
	}()

	// Previous at the head restarts the current track (standard UX) except
	// under repeat-all, where it wraps like any other step.
	if backwards && i == 0 && repeat != model.RepeatAll {
		return e.restartCurrent(ctx)
	}

	var j int
	var ok bool
	e.mu.Lock()
	if backwards {
		j, ok = prevIndex(length, i, repeat, shuffle, e.rng)
	} else {
		j, ok = nextIndex(length, i, repeat, shuffle, e.rng)
	}
	e.mu.Unlock()

	if !ok {
		// Tail of the queue with repeat=none: playback ends, the engine
		// stays parked on the last track.
		if natural {
			e.mu.Lock()
			e.transport.isPlaying = false
			e.st = statePaused
			e.publishLocked()
			e.mu.Unlock()
		}
		return nil
	}

	// Repeat-one (or a one-track queue) replays in place: rewind the live
	// handle rather than rebuilding the pipeline. With no live handle the
	// track is loaded cold below.
	if j == i {
		e.mu.Lock()
		live := e.handle != nil
		e.mu.Unlock()
		if live {
			return e.restartCurrent(ctx)
		}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	seq := e.newLoadSeqLocked()
	e.index = j
	track := e.queue[j]
	e.st = stateLoading
	e.lastErr = ""
	e.cancelPrefetchTimerLocked()
	e.publishLocked()
	e.mu.Unlock()

	if e.history != nil {
		e.history.RecordHistory(track)
	}
	return e.loadAndPlay(ctx, seq, track)
}

// restartCurrent rewinds the live handle to the top and resumes. The handle
// is read under the lock at call time, so a Play or Stop that raced in since
// the transition began cannot hand us one it already released.
func (e *Engine) restartCurrent(ctx context.Context) error {
	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()
	if handle == nil {
		return nil
	}
	if err := handle.Seek(ctx, 0); err != nil {
		return err
	}
	if err := handle.Play(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.transport.positionMs = 0
	e.transport.isPlaying = true
	e.st = statePlaying
	e.publishLocked()
	e.mu.Unlock()
	return nil
}

// Stop releases everything and returns to idle: the active handle, the
// prefetch cache, the whole playback context.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	e.newLoadSeqLocked()
	handle := e.handle
	e.handle = nil
	e.current = nil
	e.queue = nil
	e.index = 0
	e.st = stateIdle
	e.transport = transport{}
	e.lastErr = ""
	e.cancelPrefetchTimerLocked()
	e.publishLocked()
	e.mu.Unlock()

	releaseHandle(handle)
	e.prefetch.ReleaseAll()
	return nil
}

// Close stops playback and closes all subscriber channels. The engine is
// unusable afterwards.
func (e *Engine) Close() error {
	_ = e.Stop(context.Background())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.newLoadSeqLocked()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	return nil
}

// ---- device status ----

// onStatus is the status-subscription sink for the live handle. Callbacks
// carrying a stale load token belong to a released handle and are dropped.
func (e *Engine) onStatus(seq uint64, s Status) {
	e.mu.Lock()
	if e.closed || seq != e.loadSeq {
		e.mu.Unlock()
		return
	}

	if !s.IsLoaded {
		e.transport.isPlaying = false
		e.publishLocked()
		e.mu.Unlock()
		return
	}

	e.transport.positionMs = s.PositionMs
	e.transport.durationMs = s.DurationMs
	e.transport.isPlaying = s.IsPlaying
	if s.IsPlaying {
		e.st = statePlaying
	} else if e.st == statePlaying && !s.DidJustFinish {
		e.st = statePaused
	}

	finished := s.DidJustFinish && !e.advancing
	if finished {
		e.st = stateEnding
	}
	e.publishLocked()
	e.mu.Unlock()

	if finished {
		go func() {
			if err := e.advance(context.Background(), false, true); err != nil {
				logger.Warn("auto-advance failed", logger.ErrorField(err))
			}
		}()
	}
}

// ---- prefetch scheduling ----

// schedulePrefetchLocked (re)arms the debounced prefetch for the just
// started track. The delay keeps prefetch I/O out of the way of the new
// track's own startup; re-arming on every start means a stale (queue,
// index) pair can never fire.
func (e *Engine) schedulePrefetchLocked(seq uint64) {
	e.cancelPrefetchTimerLocked()

	queue := make([]model.Track, len(e.queue))
	copy(queue, e.queue)
	index := e.index

	e.prefetchTimer = time.AfterFunc(e.prefetchDelay, func() {
		e.prefetchNeighbors(seq, queue, index)
	})
}

func (e *Engine) cancelPrefetchTimerLocked() {
	if e.prefetchTimer != nil {
		e.prefetchTimer.Stop()
		e.prefetchTimer = nil
	}
}
