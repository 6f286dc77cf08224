// package services defines the HTTP API clients at each end of a playlist transfer
//
// Spotify (source), YouTube Data API (destination)
package services

// Service is implemented by each end of a transfer.
type Service interface {
	// Name returns the name of the service (e.g., "Spotify", "YouTube")
	Name() string
}

var (
	_ Service    = (*SpotifyService)(nil)
	_ Service    = (*YouTubeService)(nil)
	_ Authorizer = (*InstalledFlow)(nil)
)
