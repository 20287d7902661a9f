package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DucAnhBoDoi/Music-App/model"
)

// TrackRepository is the local cache of catalog tracks. Every track the
// Deezer adapter normalizes is upserted here, so chart browsing keeps
// working (with stale data) when the remote catalog is unreachable.
type TrackRepository interface {
	UpsertTracks(tracks []model.Track) error
	GetTrackByID(id string) (*model.Track, error)
	RecentTracks(limit int) ([]model.Track, error)
}

type mysqlTrackRepository struct {
	db *gorm.DB
}

// NewMySQLTrackRepository creates a track repository over the given GORM handle.
func NewMySQLTrackRepository(db *gorm.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

// UpsertTracks inserts or refreshes cached rows keyed by track id.
func (r *mysqlTrackRepository) UpsertTracks(tracks []model.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "artist", "cover", "duration_hint", "preview_url", "updated_at"}),
	}).Create(&tracks).Error
	if err != nil {
		return fmt.Errorf("failed to upsert tracks: %w", err)
	}
	return nil
}

// GetTrackByID returns a cached track, or nil when absent.
func (r *mysqlTrackRepository) GetTrackByID(id string) (*model.Track, error) {
	var track model.Track
	err := r.db.Where("id = ?", id).First(&track).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track %s: %w", id, err)
	}
	return &track, nil
}

// RecentTracks returns the most recently refreshed cached tracks.
func (r *mysqlTrackRepository) RecentTracks(limit int) ([]model.Track, error) {
	tracks := make([]model.Track, 0, limit)
	err := r.db.Order("updated_at DESC").Limit(limit).Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tracks: %w", err)
	}
	return tracks, nil
}
