package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DucAnhBoDoi/Music-App/model"
)

// ---- fakes ----

type fakeHandle struct {
	mu       sync.Mutex
	url      string
	playing  bool
	unloaded bool
	position int64
	volume   float64
	seeks    int
	cb       func(Status)
}

func (h *fakeHandle) Play(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return errors.New("handle unloaded")
	}
	h.playing = true
	return nil
}

func (h *fakeHandle) Pause(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	return nil
}

func (h *fakeHandle) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	return nil
}

func (h *fakeHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloaded = true
	h.playing = false
	return nil
}

func (h *fakeHandle) Seek(ctx context.Context, positionMs int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return errors.New("handle unloaded")
	}
	h.position = positionMs
	h.seeks++
	return nil
}

func (h *fakeHandle) SetVolume(ctx context.Context, volume float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = volume
	return nil
}

func (h *fakeHandle) GetStatus(ctx context.Context) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{
		IsLoaded:   !h.unloaded,
		PositionMs: h.position,
		DurationMs: 30000,
		IsPlaying:  h.playing && !h.unloaded,
	}, nil
}

func (h *fakeHandle) OnStatus(fn func(Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cb = fn
}

// finish simulates the device reporting a natural end of playback.
func (h *fakeHandle) finish() {
	h.mu.Lock()
	h.playing = false
	cb := h.cb
	h.mu.Unlock()
	if cb != nil {
		cb(Status{IsLoaded: true, PositionMs: 30000, DurationMs: 30000, DidJustFinish: true})
	}
}

func (h *fakeHandle) isUnloaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unloaded
}

func (h *fakeHandle) isPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing && !h.unloaded
}

type fakeDevice struct {
	mu      sync.Mutex
	handles []*fakeHandle
}

func (d *fakeDevice) CreateHandle(ctx context.Context, url string, opts HandleOptions) (Handle, error) {
	h := &fakeHandle{url: url, playing: opts.Autoplay, volume: opts.Volume}
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

func (d *fakeDevice) created(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, h := range d.handles {
		if h.url == url {
			n++
		}
	}
	return n
}

func (d *fakeDevice) live() []*fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*fakeHandle
	for _, h := range d.handles {
		if !h.isUnloaded() {
			out = append(out, h)
		}
	}
	return out
}

func (d *fakeDevice) lastFor(url string) *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.handles) - 1; i >= 0; i-- {
		if d.handles[i].url == url {
			return d.handles[i]
		}
	}
	return nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	tracks  map[string]model.Track
	queries []string
}

func (c *fakeCatalog) RefreshTrack(ctx context.Context, id string) (model.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, id)
	t, ok := c.tracks[id]
	if !ok {
		return model.Track{}, errors.New("track not found")
	}
	return t, nil
}

type fakeHistory struct {
	mu  sync.Mutex
	ids []string
}

func (h *fakeHistory) RecordHistory(track model.Track) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, track.ID)
}

func (h *fakeHistory) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

// ---- helpers ----

func testQueue(n int) []model.Track {
	queue := make([]model.Track, n)
	for i := range queue {
		queue[i] = model.Track{
			ID:           fmt.Sprintf("t%d", i),
			Title:        fmt.Sprintf("Track %d", i),
			Artist:       "Artist",
			DurationHint: 30,
			PreviewURL:   fmt.Sprintf("http://cdn.test/t%d.mp3", i),
		}
	}
	return queue
}

func newTestEngine(device Device, opts Options) *Engine {
	if opts.Probe == nil {
		opts.Probe = func(ctx context.Context, url string) bool { return true }
	}
	if opts.PrefetchDelay == 0 {
		opts.PrefetchDelay = time.Hour // keep prefetch out of the way unless a test wants it
	}
	return NewEngine(device, opts)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// ---- tests ----

func TestPlayStartsTrack(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	if err := e.Play(context.Background(), queue[1], queue, 1); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	state := e.State()
	if state.CurrentTrack == nil || state.CurrentTrack.ID != "t1" {
		t.Fatalf("current track = %+v, want t1", state.CurrentTrack)
	}
	if !state.IsPlaying {
		t.Error("expected IsPlaying after Play")
	}
	if state.Index != 1 {
		t.Errorf("index = %d, want 1", state.Index)
	}
	if state.DurationMs != 30000 {
		t.Errorf("durationMs = %d, want 30000 from the duration hint", state.DurationMs)
	}
	if got := device.created(queue[1].PreviewURL); got != 1 {
		t.Errorf("handles created for t1 = %d, want 1", got)
	}
}

func TestSingleActiveHandle(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error: %v", err)
	}

	live := device.live()
	if len(live) != 1 {
		t.Fatalf("live handles = %d, want exactly 1", len(live))
	}
	if live[0].url != queue[1].PreviewURL {
		t.Errorf("live handle url = %s, want %s", live[0].url, queue[1].PreviewURL)
	}
}

func TestPlayWithoutSourceFails(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{
		Probe: func(ctx context.Context, url string) bool { return false },
	})
	defer e.Close()

	track := model.Track{ID: "dead", Title: "Dead"}
	err := e.Play(context.Background(), track, nil, 0)
	if !errors.Is(err, ErrNoPlayableSource) {
		t.Fatalf("Play() error = %v, want ErrNoPlayableSource", err)
	}

	state := e.State()
	if state.IsPlaying {
		t.Error("engine should not report playing after a failed load")
	}
	if state.LastError == "" {
		t.Error("expected LastError to be set")
	}
	if len(device.live()) != 0 {
		t.Error("no handle should exist after a failed load")
	}
}

func TestRefreshRecoversDeadURL(t *testing.T) {
	device := &fakeDevice{}
	catalog := &fakeCatalog{tracks: map[string]model.Track{
		"t0": {ID: "t0", PreviewURL: "http://cdn.test/fresh.mp3"},
	}}
	e := newTestEngine(device, Options{
		Catalog: catalog,
		Probe:   func(ctx context.Context, url string) bool { return url == "http://cdn.test/fresh.mp3" },
	})
	defer e.Close()

	stale := model.Track{ID: "t0", Title: "Track 0", PreviewURL: "http://cdn.test/expired.mp3"}
	if err := e.Play(context.Background(), stale, nil, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if got := device.created("http://cdn.test/fresh.mp3"); got != 1 {
		t.Errorf("handles for refreshed url = %d, want 1", got)
	}
	if got := device.created("http://cdn.test/expired.mp3"); got != 0 {
		t.Errorf("handles for expired url = %d, want 0", got)
	}
}

func TestRepeatOneRestartsInPlace(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[1], queue, 1); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	e.SetRepeat(model.RepeatOne)

	h := device.lastFor(queue[1].PreviewURL)
	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error: %v", err)
	}

	if h.isUnloaded() {
		t.Error("repeat-one must reuse the live handle, not rebuild it")
	}
	if h.seeks == 0 {
		t.Error("repeat-one should rewind the handle")
	}
	if state := e.State(); state.Index != 1 {
		t.Errorf("index = %d, want 1", state.Index)
	}
	if len(device.handles) != 1 {
		t.Errorf("total handles created = %d, want 1", len(device.handles))
	}
}

func TestPreviousAtHeadRestarts(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	h := device.lastFor(queue[0].PreviewURL)
	if err := e.PlayPrevious(ctx); err != nil {
		t.Fatalf("PlayPrevious() error: %v", err)
	}

	if h.isUnloaded() {
		t.Error("previous at head should restart the current handle")
	}
	if h.position != 0 || h.seeks == 0 {
		t.Errorf("expected rewind to 0, position = %d seeks = %d", h.position, h.seeks)
	}
	if state := e.State(); state.Index != 0 {
		t.Errorf("index = %d, want 0", state.Index)
	}
}

func TestPreviousAtHeadWrapsUnderRepeatAll(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	e.SetRepeat(model.RepeatAll)

	if err := e.PlayPrevious(ctx); err != nil {
		t.Fatalf("PlayPrevious() error: %v", err)
	}

	state := e.State()
	if state.Index != 2 {
		t.Errorf("index = %d, want 2 (wrap to tail)", state.Index)
	}
	if state.CurrentTrack == nil || state.CurrentTrack.ID != "t2" {
		t.Errorf("current = %+v, want t2", state.CurrentTrack)
	}
}

func TestExplicitNextAtTailKeepsPlaying(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(2)
	ctx := context.Background()
	if err := e.Play(ctx, queue[1], queue, 1); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error: %v", err)
	}

	state := e.State()
	if state.Index != 1 || !state.IsPlaying {
		t.Errorf("explicit next at tail with repeat none should be a no-op, got index=%d playing=%v",
			state.Index, state.IsPlaying)
	}
}

func TestNaturalEndAdvances(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(2)
	if err := e.Play(context.Background(), queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	device.lastFor(queue[0].PreviewURL).finish()

	waitFor(t, func() bool {
		s := e.State()
		return s.CurrentTrack != nil && s.CurrentTrack.ID == "t1" && s.IsPlaying
	}, "engine did not advance to t1 after natural end")
}

func TestNaturalEndAtTailParks(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(2)
	if err := e.Play(context.Background(), queue[1], queue, 1); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	device.lastFor(queue[1].PreviewURL).finish()

	waitFor(t, func() bool {
		return !e.State().IsPlaying
	}, "engine still playing after the queue ended")

	state := e.State()
	if state.Index != 1 || state.CurrentTrack == nil || state.CurrentTrack.ID != "t1" {
		t.Errorf("engine should stay parked on the last track, got index=%d current=%+v",
			state.Index, state.CurrentTrack)
	}
}

func TestNaturalEndWrapsUnderRepeatAll(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(2)
	if err := e.Play(context.Background(), queue[1], queue, 1); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	e.SetRepeat(model.RepeatAll)

	device.lastFor(queue[1].PreviewURL).finish()

	waitFor(t, func() bool {
		s := e.State()
		return s.CurrentTrack != nil && s.CurrentTrack.ID == "t0" && s.IsPlaying
	}, "engine did not wrap to t0 under repeat all")
}

func TestNaturalEndCyclesWholeQueueUnderRepeatAll(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	if err := e.Play(context.Background(), queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	e.SetRepeat(model.RepeatAll)

	// Three back-to-back natural ends walk the whole queue and wrap:
	// t0 -> t1 -> t2 -> t0.
	for _, want := range []string{"t1", "t2", "t0"} {
		device.lastFor(e.State().CurrentTrack.PreviewURL).finish()
		waitFor(t, func() bool {
			s := e.State()
			return s.CurrentTrack != nil && s.CurrentTrack.ID == want && s.IsPlaying
		}, "engine did not advance to "+want)
	}

	if state := e.State(); state.Index != 0 {
		t.Errorf("index after full cycle = %d, want 0", state.Index)
	}
	if got := len(device.live()); got != 1 {
		t.Errorf("live handles after full cycle = %d, want 1", got)
	}
}

func TestPreviousAtHeadWithoutLiveHandle(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := []model.Track{
		{ID: "t0", Title: "Track 0"}, // no preview URL, load fails
		{ID: "t1", Title: "Track 1", PreviewURL: "http://cdn.test/t1.mp3"},
	}
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); !errors.Is(err, ErrNoPlayableSource) {
		t.Fatalf("Play() error = %v, want ErrNoPlayableSource", err)
	}

	// The restart path reads the live handle at restart time; with none
	// loaded it is a quiet no-op rather than a seek on a stale reference.
	if err := e.PlayPrevious(ctx); err != nil {
		t.Fatalf("PlayPrevious() error: %v", err)
	}
	state := e.State()
	if state.Index != 0 || state.IsPlaying {
		t.Errorf("state = index %d playing %v, want parked at 0", state.Index, state.IsPlaying)
	}
	if len(device.live()) != 0 {
		t.Error("no handle should exist after a failed load and a previous at head")
	}
}

func TestSupersededLoadBacksOut(t *testing.T) {
	device := &fakeDevice{}
	queue := testQueue(2)

	probeEntered := make(chan struct{})
	unblock := make(chan struct{})
	e := newTestEngine(device, Options{
		Probe: func(ctx context.Context, url string) bool {
			if url == queue[0].PreviewURL {
				close(probeEntered)
				<-unblock
			}
			return true
		},
	})
	defer e.Close()

	ctx := context.Background()
	firstDone := make(chan error, 1)
	go func() { firstDone <- e.Play(ctx, queue[0], queue, 0) }()
	<-probeEntered

	if err := e.Play(ctx, queue[1], queue, 1); err != nil {
		t.Fatalf("second Play() error: %v", err)
	}
	close(unblock)
	if err := <-firstDone; err != nil {
		t.Fatalf("superseded Play() should return nil, got %v", err)
	}

	if got := device.created(queue[0].PreviewURL); got != 0 {
		t.Errorf("superseded load created %d handles, want 0", got)
	}
	state := e.State()
	if state.CurrentTrack == nil || state.CurrentTrack.ID != "t1" {
		t.Errorf("current = %+v, want t1", state.CurrentTrack)
	}
	if len(device.live()) != 1 {
		t.Errorf("live handles = %d, want 1", len(device.live()))
	}
}

func TestHistoryRecordedOnStart(t *testing.T) {
	device := &fakeDevice{}
	history := &fakeHistory{}
	e := newTestEngine(device, Options{History: history})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error: %v", err)
	}

	got := history.recorded()
	if len(got) != 2 || got[0] != "t0" || got[1] != "t1" {
		t.Errorf("history = %v, want [t0 t1]", got)
	}
}

func TestVolumePersistsAcrossTracks(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(2)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if err := e.SetVolume(ctx, 0.5); err != nil {
		t.Fatalf("SetVolume() error: %v", err)
	}
	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error: %v", err)
	}

	h := device.lastFor(queue[1].PreviewURL)
	if h.volume != 0.5 {
		t.Errorf("new handle volume = %v, want 0.5", h.volume)
	}
}

func TestSeekTo(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(1)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if err := e.SeekTo(ctx, 0.5); err != nil {
		t.Fatalf("SeekTo() error: %v", err)
	}

	h := device.lastFor(queue[0].PreviewURL)
	if h.position != 15000 {
		t.Errorf("handle position = %d, want 15000", h.position)
	}
	if state := e.State(); state.PositionMs != 15000 {
		t.Errorf("state position = %d, want 15000", state.PositionMs)
	}
}

func TestTogglePlayPause(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(1)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if err := e.TogglePlayPause(ctx); err != nil {
		t.Fatalf("TogglePlayPause() error: %v", err)
	}
	if e.State().IsPlaying {
		t.Error("expected paused after first toggle")
	}

	if err := e.TogglePlayPause(ctx); err != nil {
		t.Fatalf("TogglePlayPause() error: %v", err)
	}
	if !e.State().IsPlaying {
		t.Error("expected playing after second toggle")
	}
}

func TestStopClearsEverything(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	state := e.State()
	if state.CurrentTrack != nil || len(state.Queue) != 0 || state.IsPlaying {
		t.Errorf("state not cleared after Stop: %+v", state)
	}
	if len(device.live()) != 0 {
		t.Error("handles still live after Stop")
	}
}

func TestPrefetchWarmsAndAdoptsNeighbors(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{PrefetchDelay: 10 * time.Millisecond})
	defer e.Close()

	queue := testQueue(3)
	ctx := context.Background()
	if err := e.Play(ctx, queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	// Neighbours of index 0 in a 3-track queue are 1 and 2 (wrapping).
	waitFor(t, func() bool {
		return device.created(queue[1].PreviewURL) == 1 && device.created(queue[2].PreviewURL) == 1
	}, "prefetch did not warm both neighbours")

	warm := device.lastFor(queue[1].PreviewURL)
	if warm.isPlaying() {
		t.Error("prefetched handle must stay paused")
	}
	if warm.volume != 0 {
		t.Errorf("prefetched handle volume = %v, want 0", warm.volume)
	}

	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error: %v", err)
	}

	if got := device.created(queue[1].PreviewURL); got != 1 {
		t.Errorf("handles created for t1 = %d, want 1 (warm handle adopted, not rebuilt)", got)
	}
	if !warm.isPlaying() {
		t.Error("adopted handle should be playing")
	}
	if warm.volume != 1.0 {
		t.Errorf("adopted handle volume = %v, want 1.0", warm.volume)
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	device := &fakeDevice{}
	e := newTestEngine(device, Options{})
	defer e.Close()

	id, states := e.Subscribe()
	defer e.Unsubscribe(id)

	first := <-states
	if first.CurrentTrack != nil || first.IsPlaying {
		t.Errorf("initial snapshot should be idle, got %+v", first)
	}

	queue := testQueue(1)
	if err := e.Play(context.Background(), queue[0], queue, 0); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	waitFor(t, func() bool {
		for {
			select {
			case s := <-states:
				if s.CurrentTrack != nil && s.CurrentTrack.ID == "t0" && s.IsPlaying {
					return true
				}
			default:
				return false
			}
		}
	}, "subscriber never saw the playing snapshot")
}
