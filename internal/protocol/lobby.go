package protocol

import "strconv"

// ArtworkURL is the artwork location clients resolve; they substitute [HOST].
func ArtworkURL(port int, ref string) string {
	if ref == "" {
		return ""
	}
	return "http://[HOST]:" + strconv.Itoa(port) + "/art/" + ref
}

type Member struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Agent       string `json:"agent"`
	Permissions uint32 `json:"permissions"`
	Address     string `json:"address"`
}

type LibraryItem struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	ImageURL string `json:"imageUrl,omitempty"`
	Length   int64  `json:"length"`
}

type Library struct {
	Name  string        `json:"name"`
	Items []LibraryItem `json:"items"`
}

// Media is a queued entry.
type Media struct {
	Requester int    `json:"requester"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Artwork   string `json:"artwork,omitempty"`
	Length    int64  `json:"length"`
	Progress  int64  `json:"progress"`
}

type Round struct {
	ID      int     `json:"id"`
	Playing int     `json:"playing"`
	Media   []Media `json:"media"`
}

type Looper struct {
	CurrentQueue int     `json:"currentQueue"`
	Rounds       []Round `json:"rounds"`
}

type VolumeState struct {
	Level     float64 `json:"level"`
	Muted     bool    `json:"muted"`
	Supported bool    `json:"supported"`
}

// Lobby is the full state snapshot sent with DATA_PUSH and LOBBY_UPDATED.
type Lobby struct {
	Title       string      `json:"title"`
	HostID      int         `json:"hostId"`
	Members     []Member    `json:"members"`
	Looper      Looper      `json:"looper"`
	Library     Library     `json:"library"`
	PlayerState int         `json:"playerState"`
	VolumeState VolumeState `json:"volumeState"`
	NowPlaying  *Media      `json:"nowPlaying"`
	UpNext      *Media      `json:"upNext"`
	ActionBoard any         `json:"actionBoard"`
}
