package domain

// CatalogEntryID is stable for the lifetime of one catalog load.
type CatalogEntryID int

// CatalogEntry is a playable song. Immutable once loaded.
type CatalogEntry struct {
	ID         CatalogEntryID `json:"id"`
	Title      string         `json:"title"`
	Artist     string         `json:"artist"`
	Album      string         `json:"album"`
	Duration   int64          `json:"length"` // millis
	ArtworkRef string         `json:"artwork,omitempty"`
	Path       string         `json:"-"`
}

type PlaybackState int

const (
	PlaybackReady PlaybackState = iota
	PlaybackPlaying
	PlaybackPaused
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackReady:
		return "ready"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	}
	return "unknown"
}
