package models

// PlaylistDetails describes the playlist to create on the destination.
type PlaylistDetails struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
}

// PlaylistResult is the created destination playlist and how many items made it in.
type PlaylistResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
	ChannelID   string `json:"channel_id,omitempty"`
	Inserted    int    `json:"inserted"`
}

// SourcePlaylist is metadata about the Spotify playlist being read.
type SourcePlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}
