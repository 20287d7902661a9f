package collection

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
)

const (
	keyFavorites = "favorites"
	keyPlaylists = "playlists"
	keyHistory   = "history"

	persistTimeout = 5 * time.Second
)

// KV is the external key-value blob store collections persist through.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, keys ...string) error
}

// Store holds favorites, named playlists and the bounded play history.
// In-memory state is the source of truth for the session; every mutation
// fires a persist write without blocking on it. A failed persist is logged
// and not retried, the durability store is an aid, not a ledger.
type Store struct {
	mu           sync.RWMutex
	favorites    []model.Track
	playlists    map[string][]model.Track
	history      []model.Track
	historyLimit int

	kv KV
	wg sync.WaitGroup
}

// NewStore creates a collections store persisting through kv. historyLimit
// caps the play history (50 in the app).
func NewStore(kv KV, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Store{
		playlists:    make(map[string][]model.Track),
		historyLimit: historyLimit,
		kv:           kv,
	}
}

// Load reads the persisted blobs into memory. Called once at startup;
// missing or corrupt blobs leave the corresponding collection empty.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv == nil {
		return nil
	}

	if data, err := s.kv.Get(ctx, keyFavorites); err != nil {
		logger.Warn("load favorites failed", logger.ErrorField(err))
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, &s.favorites); err != nil {
			logger.Warn("favorites blob corrupt, starting empty", logger.ErrorField(err))
			s.favorites = nil
		}
	}

	if data, err := s.kv.Get(ctx, keyPlaylists); err != nil {
		logger.Warn("load playlists failed", logger.ErrorField(err))
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, &s.playlists); err != nil {
			logger.Warn("playlists blob corrupt, starting empty", logger.ErrorField(err))
			s.playlists = make(map[string][]model.Track)
		}
	}
	if s.playlists == nil {
		s.playlists = make(map[string][]model.Track)
	}

	if data, err := s.kv.Get(ctx, keyHistory); err != nil {
		logger.Warn("load history failed", logger.ErrorField(err))
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, &s.history); err != nil {
			logger.Warn("history blob corrupt, starting empty", logger.ErrorField(err))
			s.history = nil
		}
	}

	return nil
}

// persist serializes value and fires the write in the background.
func (s *Store) persist(key string, value interface{}) {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Error("marshal collection failed", logger.String("key", key), logger.ErrorField(err))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.kv.Set(ctx, key, data); err != nil {
			logger.Warn("persist failed, in-memory state kept",
				logger.String("key", key),
				logger.ErrorField(err))
		}
	}()
}

// Flush waits for outstanding persist writes. Used on shutdown and in tests.
func (s *Store) Flush() {
	s.wg.Wait()
}

// ---- Favorites ----

// ToggleFavorite adds the track to favorites, or removes it when already a
// member (by id). Returns true when the track is a favorite afterwards.
func (s *Store) ToggleFavorite(track model.Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.favorites {
		if t.ID == track.ID {
			s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
			s.persist(keyFavorites, s.favorites)
			return false
		}
	}
	s.favorites = append(s.favorites, track)
	s.persist(keyFavorites, s.favorites)
	return true
}

// IsFavorite reports membership by track id.
func (s *Store) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.favorites {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Favorites returns a copy of the favorites list.
func (s *Store) Favorites() []model.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Track, len(s.favorites))
	copy(out, s.favorites)
	return out
}

// ---- Playlists ----

// CreatePlaylist creates an empty playlist. Fails when the trimmed name is
// empty or already taken (case-sensitive exact match); never overwrites.
func (s *Store) CreatePlaylist(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.playlists[trimmed]; exists {
		return false
	}
	s.playlists[trimmed] = []model.Track{}
	s.persist(keyPlaylists, s.playlists)
	return true
}

// DeletePlaylist removes a playlist. Deleting a non-existent playlist is a
// no-op, not an error.
func (s *Store) DeletePlaylist(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.playlists[name]; !exists {
		return
	}
	delete(s.playlists, name)
	s.persist(keyPlaylists, s.playlists)
}

// RenamePlaylist renames old to new. Fails when old does not exist or the
// trimmed new name is empty or already taken.
func (s *Store) RenamePlaylist(oldName, newName string) bool {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, exists := s.playlists[oldName]
	if !exists {
		return false
	}
	if _, taken := s.playlists[trimmed]; taken {
		return false
	}
	s.playlists[trimmed] = tracks
	delete(s.playlists, oldName)
	s.persist(keyPlaylists, s.playlists)
	return true
}

// AddToPlaylist appends the track to the named playlist. Fails when the
// playlist does not exist or the track id is already a member of it.
func (s *Store) AddToPlaylist(name string, track model.Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, exists := s.playlists[name]
	if !exists {
		return false
	}
	for _, t := range tracks {
		if t.ID == track.ID {
			return false
		}
	}
	s.playlists[name] = append(tracks, track)
	s.persist(keyPlaylists, s.playlists)
	return true
}

// RemoveFromPlaylist removes the track by id. Removing a non-member or from
// a non-existent playlist is a no-op.
func (s *Store) RemoveFromPlaylist(name string, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, exists := s.playlists[name]
	if !exists {
		return
	}
	for i, t := range tracks {
		if t.ID == id {
			s.playlists[name] = append(tracks[:i], tracks[i+1:]...)
			s.persist(keyPlaylists, s.playlists)
			return
		}
	}
}

// PlaylistNames returns all playlist names, sorted for stable output.
func (s *Store) PlaylistNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.playlists))
	for name := range s.playlists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlaylistTracks returns a copy of the named playlist, or nil when it does
// not exist.
func (s *Store) PlaylistTracks(name string) []model.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks, exists := s.playlists[name]
	if !exists {
		return nil
	}
	out := make([]model.Track, len(tracks))
	copy(out, tracks)
	return out
}

// ---- History ----

// RecordHistory logs a play at the front of the history, deduplicated by
// id (replaying moves the entry to the front) and capped at the configured
// limit.
func (s *Store) RecordHistory(track model.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.history {
		if t.ID == track.ID {
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.history = append([]model.Track{track}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
	s.persist(keyHistory, s.history)
}

// History returns a copy of the history, most recent first.
func (s *Store) History() []model.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Track, len(s.history))
	copy(out, s.history)
	return out
}

// ClearAll wipes every collection in memory and removes the persisted blobs.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	s.favorites = nil
	s.playlists = make(map[string][]model.Track)
	s.history = nil
	s.mu.Unlock()

	if s.kv == nil {
		return
	}
	if err := s.kv.Remove(ctx, keyFavorites, keyPlaylists, keyHistory); err != nil {
		logger.Warn("clear collections failed", logger.ErrorField(err))
	}
}
