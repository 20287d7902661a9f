package model

import "time"

// Track is the canonical record for one song: catalog metadata plus a
// playable preview URL. Equality inside collections is by ID only; title,
// artist and cover may be refreshed in place when the catalog re-resolves
// the track.
type Track struct {
	ID           string `json:"id" gorm:"primaryKey;column:id"`
	Title        string `json:"title" gorm:"column:title"`
	Artist       string `json:"artist" gorm:"column:artist"`
	Cover        string `json:"cover,omitempty" gorm:"column:cover"`
	DurationHint int    `json:"duration,omitempty" gorm:"column:duration_hint"` // seconds, author-declared
	PreviewURL   string `json:"preview,omitempty" gorm:"column:preview_url"`    // may expire, refresh via catalog

	CreatedAt time.Time `json:"-" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"-" gorm:"column:updated_at"`
}

// TableName maps Track to the tracks cache table.
func (Track) TableName() string {
	return "tracks"
}
