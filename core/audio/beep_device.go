package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/DucAnhBoDoi/Music-App/core/player"
	"github.com/DucAnhBoDoi/Music-App/logger"
)

const (
	// Speaker mixing rate. Every stream is resampled to this, so the
	// speaker is initialized exactly once per process.
	mixRate = beep.SampleRate(44100)

	statusInterval  = 500 * time.Millisecond
	downloadTimeout = 2 * time.Minute
	maxPreviewBytes = 32 << 20
)

var speakerOnce sync.Once

func initSpeaker() (err error) {
	speakerOnce.Do(func() {
		err = speaker.Init(mixRate, mixRate.N(time.Second/10))
	})
	return err
}

// BeepDevice is the local audio output. Preview MP3s are short (~30 s), so
// each is downloaded whole into memory and decoded from there, which makes
// seeking trivial.
type BeepDevice struct {
	httpClient *http.Client
}

// NewBeepDevice creates the device.
func NewBeepDevice() *BeepDevice {
	return &BeepDevice{
		httpClient: &http.Client{Timeout: downloadTimeout},
	}
}

type nopCloser struct{ io.ReadSeeker }

func (nopCloser) Close() error { return nil }

// CreateHandle downloads and decodes the MP3 at url, wires it into the
// shared speaker and returns the handle. The stream starts paused unless
// opts.Autoplay is set; a paused stream stays in the mixer emitting silence,
// which is exactly what a prefetched handle needs.
func (d *BeepDevice) CreateHandle(ctx context.Context, url string, opts player.HandleOptions) (player.Handle, error) {
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("speaker init failed: %w", err)
	}

	data, err := d.download(ctx, url)
	if err != nil {
		return nil, err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return nil, fmt.Errorf("mp3 decode failed: %w", err)
	}

	h := &beepHandle{
		streamer:   streamer,
		sampleRate: format.SampleRate,
		done:       make(chan struct{}),
	}

	resampled := beep.Resample(4, format.SampleRate, mixRate, streamer)
	h.ctrl = &beep.Ctrl{Streamer: resampled, Paused: !opts.Autoplay}
	h.vol = &effects.Volume{Streamer: h.ctrl, Base: 2}
	h.applyVolume(opts.Volume)

	// opts.Loop is ignored: repeat-one is implemented by the engine via
	// seek-and-resume, never by the device.
	speaker.Play(beep.Seq(h.vol, beep.Callback(func() {
		h.markFinished()
	})))

	go h.pollStatus()
	return h, nil
}

func (d *BeepDevice) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audio download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewBytes))
	if err != nil {
		return nil, fmt.Errorf("audio read failed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio download was empty")
	}
	return data, nil
}

// beepHandle is one decoded stream inside the shared speaker mixer.
type beepHandle struct {
	streamer   beep.StreamSeekCloser
	sampleRate beep.SampleRate
	ctrl       *beep.Ctrl
	vol        *effects.Volume

	mu         sync.Mutex
	callback   func(player.Status)
	finished   bool
	reportedFn bool // DidJustFinish delivered once
	polling    bool
	unloaded   bool
	done       chan struct{}
}

func (h *beepHandle) markFinished() {
	h.mu.Lock()
	h.finished = true
	h.mu.Unlock()
}

// pollStatus samples transport state on a fixed cadence and feeds the
// status callback, mirroring the polled status updates the engine expects.
func (h *beepHandle) pollStatus() {
	h.mu.Lock()
	if h.polling {
		h.mu.Unlock()
		return
	}
	h.polling = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.polling = false
		h.mu.Unlock()
	}()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			status := h.sampleStatus()
			h.mu.Lock()
			cb := h.callback
			h.mu.Unlock()
			if cb != nil {
				cb(status)
			}
			if status.DidJustFinish {
				// One final report; the engine takes over from here.
				return
			}
		}
	}
}

func (h *beepHandle) sampleStatus() player.Status {
	h.mu.Lock()
	finished := h.finished
	unloaded := h.unloaded
	reported := h.reportedFn
	if finished && !reported {
		h.reportedFn = true
	}
	h.mu.Unlock()

	if unloaded {
		return player.Status{IsLoaded: false}
	}

	speaker.Lock()
	pos := h.streamer.Position()
	length := h.streamer.Len()
	paused := h.ctrl.Paused
	speaker.Unlock()

	return player.Status{
		IsLoaded:      true,
		PositionMs:    h.sampleRate.D(pos).Milliseconds(),
		DurationMs:    h.sampleRate.D(length).Milliseconds(),
		IsPlaying:     !paused && !finished,
		DidJustFinish: finished && !reported,
	}
}

func (h *beepHandle) Play(ctx context.Context) error {
	h.mu.Lock()
	// Once the sequence drains, the mixer has dropped it. A restart after
	// a natural finish (repeat-one, previous-at-head) has to re-attach the
	// stream and resume status polling.
	reattach := h.finished
	h.finished = false
	h.reportedFn = false
	h.mu.Unlock()

	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()

	if reattach {
		speaker.Play(beep.Seq(h.vol, beep.Callback(func() {
			h.markFinished()
		})))
		go h.pollStatus()
	}
	return nil
}

func (h *beepHandle) Pause(ctx context.Context) error {
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (h *beepHandle) Stop(ctx context.Context) error {
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (h *beepHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return nil
	}
	h.unloaded = true
	h.callback = nil
	close(h.done)
	h.mu.Unlock()

	// Detach from the mixer: a Ctrl with a nil streamer drains instantly.
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()

	if err := h.streamer.Close(); err != nil {
		logger.Debug("streamer close failed", logger.ErrorField(err))
	}
	return nil
}

func (h *beepHandle) Seek(ctx context.Context, positionMs int64) error {
	sample := h.sampleRate.N(time.Duration(positionMs) * time.Millisecond)

	speaker.Lock()
	err := h.streamer.Seek(sample)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	return nil
}

func (h *beepHandle) SetVolume(ctx context.Context, volume float64) error {
	h.applyVolume(volume)
	return nil
}

func (h *beepHandle) applyVolume(volume float64) {
	speaker.Lock()
	if volume <= 0 {
		h.vol.Silent = true
	} else {
		h.vol.Silent = false
		if volume > 1 {
			volume = 1
		}
		h.vol.Volume = math.Log2(volume)
	}
	speaker.Unlock()
}

func (h *beepHandle) GetStatus(ctx context.Context) (player.Status, error) {
	h.mu.Lock()
	unloaded := h.unloaded
	h.mu.Unlock()
	if unloaded {
		return player.Status{IsLoaded: false}, nil
	}

	speaker.Lock()
	pos := h.streamer.Position()
	length := h.streamer.Len()
	paused := h.ctrl.Paused
	speaker.Unlock()

	h.mu.Lock()
	finished := h.finished
	h.mu.Unlock()

	return player.Status{
		IsLoaded:   true,
		PositionMs: h.sampleRate.D(pos).Milliseconds(),
		DurationMs: h.sampleRate.D(length).Milliseconds(),
		IsPlaying:  !paused && !finished,
	}, nil
}

func (h *beepHandle) OnStatus(fn func(player.Status)) {
	h.mu.Lock()
	h.callback = fn
	h.mu.Unlock()
}
