package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
	"github.com/DucAnhBoDoi/Music-App/storage"
)

const (
	artworkTTL          = 30 * time.Minute
	artworkFetchTimeout = 20 * time.Second
	maxArtworkBytes     = 5 << 20
)

// ArtworkCache warms cover art ahead of track transitions. Bytes land in
// Redis with a TTL; when MinIO is configured they are mirrored there too so
// a cold Redis still avoids refetching from the CDN.
type ArtworkCache struct {
	client *redis.Client
	http   *http.Client
}

// NewArtworkCache builds a cache over the given Redis client.
func NewArtworkCache(client *redis.Client) *ArtworkCache {
	return &ArtworkCache{
		client: client,
		http:   &http.Client{Timeout: artworkFetchTimeout},
	}
}

func artworkKey(trackID string) string {
	return fmt.Sprintf("musicapp:artwork:%s", trackID)
}

// WarmArtwork fetches the track's cover into the cache. Failures are logged
// and swallowed: a cold cover only costs the UI a slower image load later.
func (c *ArtworkCache) WarmArtwork(ctx context.Context, track model.Track) {
	if track.Cover == "" {
		return
	}

	if warm, _ := c.IsWarm(ctx, track.ID); warm {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.Cover, nil)
	if err != nil {
		logger.Warn("artwork request build failed",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("artwork fetch failed",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("artwork fetch bad status",
			logger.String("trackId", track.ID),
			logger.Int("status", resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes))
	if err != nil || len(data) == 0 {
		logger.Warn("artwork read failed",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		return
	}

	if c.client != nil {
		if err := c.client.Set(ctx, artworkKey(track.ID), data, artworkTTL).Err(); err != nil {
			logger.Warn("artwork cache set failed",
				logger.String("trackId", track.ID),
				logger.ErrorField(err))
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if err := storage.PutArtwork(ctx, track.ID, data, contentType); err != nil {
		logger.Warn("artwork mirror failed",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
	}

	logger.Debug("artwork warmed",
		logger.String("trackId", track.ID),
		logger.Int("bytes", len(data)))
}

// IsWarm reports whether artwork for the track is already cached.
func (c *ArtworkCache) IsWarm(ctx context.Context, trackID string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, artworkKey(trackID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetArtwork returns cached artwork bytes, falling back to the MinIO mirror
// on a Redis miss. Returns nil on a full miss.
func (c *ArtworkCache) GetArtwork(ctx context.Context, trackID string) ([]byte, error) {
	if c.client != nil {
		data, err := c.client.Get(ctx, artworkKey(trackID)).Bytes()
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil && err != redis.Nil {
			logger.Warn("artwork cache get failed",
				logger.String("trackId", trackID),
				logger.ErrorField(err))
		}
	}
	return storage.GetArtwork(ctx, trackID)
}
