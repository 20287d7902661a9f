package model

// RepeatMode controls what the engine does when a track ends.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Valid reports whether m is one of the three known repeat modes.
func (m RepeatMode) Valid() bool {
	return m == RepeatNone || m == RepeatAll || m == RepeatOne
}

// PlayerState is the read model the engine publishes to UI surfaces.
// Every update replaces the whole snapshot, so the full player screen and
// the mini player can never observe diverging values.
type PlayerState struct {
	CurrentTrack *Track     `json:"currentTrack,omitempty"`
	Queue        []Track    `json:"queue"`
	Index        int        `json:"index"`
	IsPlaying    bool       `json:"isPlaying"`
	PositionMs   int64      `json:"positionMs"`
	DurationMs   int64      `json:"durationMs"`
	Repeat       RepeatMode `json:"repeat"`
	Shuffle      bool       `json:"shuffle"`
	LastError    string     `json:"lastError,omitempty"`
}
