// Package services implements the two ends of a Spotify → YouTube playlist transfer.
//
// # Spotify Source
//
// [SpotifyService] authenticates with the client credentials grant (app-only, no user consent) and reads a
// playlist's tracks with the resulting bearer token:
//   - [SpotifyService.FetchToken] : one POST to the accounts token endpoint, no retry
//   - [SpotifyService.ReadPlaylist] : GET /playlists/{id}/tracks, first page unless pagination is enabled
//   - [SpotifyService.PlaylistInfo] : playlist metadata through github.com/zmb3/spotify/v2
//
// # YouTube Destination
//
// [YouTubeService] wraps the generated YouTube Data API v3 client. Searches are authorized by API key;
// playlist writes need an OAuth token from an [Authorizer]:
//   - [YouTubeService.Search] / [YouTubeService.Resolve] : search.list with maxResults=1, type=video
//   - [YouTubeService.CreatePlaylist] : playlists.insert (snippet, status)
//   - [YouTubeService.InsertItem] / [YouTubeService.Populate] : playlistItems.insert, one call per video
//
// Search calls may be rate limited. No call is retried.
//
// # Installed-App OAuth
//
// [InstalledFlow] is the [Authorizer] used by the CLI. It serves the loopback redirect with the server package,
// opens the consent page in a browser, and waits up to two minutes for the code. An optional token cache skips
// consent on later runs and stores refreshed tokens.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client id/secret, API key or client secrets file not configured
//   - [shared.ErrAuthFailed] : token request or consent failed
//   - [shared.ErrNotAuthenticated] : playlist write before Authorize
//   - [shared.ErrTokenExpired] : API returned 401
//   - [shared.ErrPlaylistNotFound] : API returned 404
//   - [shared.ErrNoItems] : source playlist has no items
//   - [shared.ErrAPIRequest] : any other failed request
package services
