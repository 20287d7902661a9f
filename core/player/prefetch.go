package player

import (
	"context"
	"sync"
	"time"

	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
)

// prefetchEntry is one warmed slot: a paused, zero-volume handle plus a flag
// for whether the artwork warm was kicked off.
type prefetchEntry struct {
	trackID     string
	handle      Handle
	artworkWarm bool
}

// PrefetchCache is the bounded store of warmed handles for the tracks
// adjacent to the current queue position. Insertion order doubles as the
// eviction order: when capacity is exceeded the oldest entry is dropped and
// its handle released immediately, so no device resource dangles.
type PrefetchCache struct {
	mu       sync.Mutex
	capacity int
	entries  []*prefetchEntry
}

// NewPrefetchCache creates a cache holding at most capacity handles.
func NewPrefetchCache(capacity int) *PrefetchCache {
	if capacity <= 0 {
		capacity = 3
	}
	return &PrefetchCache{capacity: capacity}
}

// Has reports whether a warm handle exists for the track.
func (c *PrefetchCache) Has(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.trackID == trackID {
			return true
		}
	}
	return false
}

// Take removes and returns the warm handle for the track, or nil when the
// cache holds none. Ownership of the handle transfers to the caller.
func (c *PrefetchCache) Take(trackID string) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.trackID == trackID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return e.handle
		}
	}
	return nil
}

// Put inserts a warmed handle, evicting the oldest entry when full. A second
// Put for the same track releases the new handle and keeps the old one.
func (c *PrefetchCache) Put(trackID string, handle Handle) {
	c.mu.Lock()

	for _, e := range c.entries {
		if e.trackID == trackID {
			c.mu.Unlock()
			releaseHandle(handle)
			return
		}
	}

	var evicted *prefetchEntry
	if len(c.entries) >= c.capacity {
		evicted = c.entries[0]
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, &prefetchEntry{trackID: trackID, handle: handle})
	c.mu.Unlock()

	if evicted != nil {
		logger.Debug("prefetch evict", logger.String("trackId", evicted.trackID))
		releaseHandle(evicted.handle)
	}
}

// Len returns the number of warmed entries.
func (c *PrefetchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ReleaseAll drops every entry and releases its handle. Called on stop and
// at teardown.
func (c *PrefetchCache) ReleaseAll() {
	c.mu.Lock()
	entries := c.entries
	c.entries = nil
	c.mu.Unlock()

	for _, e := range entries {
		releaseHandle(e.handle)
	}
}

// releaseHandle stops and unloads a handle, swallowing errors: a failed
// release of a speculative handle must never surface to the user.
func releaseHandle(h Handle) {
	if h == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.OnStatus(nil)
	if err := h.Stop(ctx); err != nil {
		logger.Debug("prefetch handle stop failed", logger.ErrorField(err))
	}
	if err := h.Unload(ctx); err != nil {
		logger.Debug("prefetch handle unload failed", logger.ErrorField(err))
	}
}

// prefetchNeighbors warms the immediate next and previous tracks (by index,
// wrapping) after a track start. Runs on the engine's debounce timer; every
// new track start cancels the previous timer so a stale (queue, index) pair
// can never fire.
func (e *Engine) prefetchNeighbors(seq uint64, queue []model.Track, index int) {
	if len(queue) < 2 {
		return
	}

	next := (index + 1) % len(queue)
	prev := (index - 1 + len(queue)) % len(queue)

	targets := []int{next}
	if prev != next {
		targets = append(targets, prev)
	}

	for _, i := range targets {
		track := queue[i]
		if track.ID == "" || track.PreviewURL == "" {
			continue
		}
		if !e.isCurrentLoad(seq) {
			return
		}
		if e.prefetch.Has(track.ID) {
			continue
		}

		if e.artwork != nil {
			go func(t model.Track) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				e.artwork.WarmArtwork(ctx, t)
			}(track)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		handle, err := e.device.CreateHandle(ctx, track.PreviewURL, HandleOptions{
			Autoplay: false,
			Volume:   0,
		})
		cancel()
		if err != nil {
			// Non-fatal: the later load simply goes cold.
			logger.Debug("prefetch load failed",
				logger.String("trackId", track.ID),
				logger.ErrorField(err))
			continue
		}

		if !e.isCurrentLoad(seq) {
			releaseHandle(handle)
			return
		}
		e.prefetch.Put(track.ID, handle)
		logger.Debug("prefetch warmed",
			logger.String("trackId", track.ID),
			logger.String("title", track.Title))
	}
}
