// Spotify Web API source for the transfer pipeline.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	playlistInfoFields = "id,name,description,public,owner(display_name),tracks(total)"
)

// SpotifyArtist represents a Spotify artist as embedded in a track.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// Descriptor reduces the track to its name and ordered artist names.
func (t SpotifyTrack) Descriptor() models.TrackDescriptor {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return models.TrackDescriptor{ID: t.ID, Name: t.Name, Artists: artists}
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for removed tracks and some local files.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of GET /playlists/{id}/tracks.
//
// Items is a pointer so a body without the key can be told apart from an empty list.
type SpotifyPlaylistTracks struct {
	Items *[]SpotifyPlaylistTrack `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

// SpotifyService reads source playlists with an app-only (client credentials) token.
type SpotifyService struct {
	config     shared.SpotifyConfig
	httpClient *http.Client
	logger     *log.Logger
	paginate   bool
}

// NewSpotifyService creates a Spotify service. Empty token and API URLs fall back to Spotify's public endpoints.
func NewSpotifyService(config shared.SpotifyConfig, logger *log.Logger) *SpotifyService {
	if config.TokenURL == "" {
		config.TokenURL = spotifyauth.TokenURL
	}
	if config.APIURL == "" {
		config.APIURL = spotifyBaseURL
	}
	config.APIURL = strings.TrimSuffix(config.APIURL, "/")

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetHTTPClient replaces the client used for token and API requests.
func (s *SpotifyService) SetHTTPClient(c *http.Client) {
	if c != nil {
		s.httpClient = c
	}
}

// SetPaginate makes [SpotifyService.ReadPlaylist] follow next links instead of stopping at the first page.
func (s *SpotifyService) SetPaginate(paginate bool) {
	s.paginate = paginate
}

// FetchToken exchanges the client id and secret for an app access token.
//
// Exactly one token request is made. Failures are logged once and wrap [shared.ErrAuthFailed].
func (s *SpotifyService) FetchToken(ctx context.Context) (string, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return "", fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	token, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient))
	if err != nil {
		s.logger.Error("Failed to get Spotify access token", "error", err)
		return "", fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	s.logger.Debug("spotify access token acquired", "expiry", token.Expiry)
	return token.AccessToken, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, token, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrTokenExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrPlaylistNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// ReadPlaylist fetches the playlist's tracks in playlist order.
//
// Only the first page is read unless pagination is enabled. A body without items, or with none,
// returns [shared.ErrNoItems]. Items whose track is null are skipped.
func (s *SpotifyService) ReadPlaylist(ctx context.Context, token, playlistID string) ([]models.TrackDescriptor, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", s.config.APIURL, url.PathEscape(playlistID))
	var tracks []models.TrackDescriptor

	for page := 1; endpoint != ""; page++ {
		var body SpotifyPlaylistTracks
		if err := s.doRequest(ctx, token, endpoint, &body); err != nil {
			s.logger.Error("Failed to read Spotify playlist", "playlist", playlistID, "error", err)
			return nil, err
		}

		if body.Items == nil {
			break
		}

		for i, item := range *body.Items {
			if item.Track == nil {
				s.logger.Warn("skipping playlist item without a track", "page", page, "index", i)
				continue
			}
			tracks = append(tracks, item.Track.Descriptor())
		}

		endpoint = ""
		if s.paginate && body.Next != nil {
			endpoint = *body.Next
		}
	}

	if len(tracks) == 0 {
		s.logger.Error("No items found in the playlist.")
		return nil, shared.ErrNoItems
	}

	s.logger.Debug("read spotify playlist", "playlist", playlistID, "tracks", len(tracks))
	return tracks, nil
}

// PlaylistInfo fetches the playlist's metadata through the Spotify client library.
func (s *SpotifyService) PlaylistInfo(ctx context.Context, token, playlistID string) (*models.SourcePlaylist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient), ts)
	client := spotify.New(httpClient, spotify.WithBaseURL(s.config.APIURL+"/"))

	playlist, err := client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields(playlistInfoFields))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
			case http.StatusNotFound:
				return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, err)
			}
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return &models.SourcePlaylist{
		ID:          playlistID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Owner:       playlist.Owner.DisplayName,
		TrackCount:  int(playlist.Tracks.Total),
		Public:      playlist.IsPublic,
	}, nil
}
