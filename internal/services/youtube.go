// YouTube Data API v3 destination for the transfer pipeline.
//
// Searches use the API key. Playlist writes need an OAuth token obtained through an [Authorizer].
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const videoKind = "youtube#video"

// Authorizer obtains user consent for write access to a YouTube account.
type Authorizer interface {
	Authorize(ctx context.Context) (oauth2.TokenSource, error)
}

// YouTubeService resolves tracks to videos and writes playlists through the YouTube Data API.
type YouTubeService struct {
	config     shared.YouTubeConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	search *youtube.Service
	writer *youtube.Service
}

// NewYouTubeService creates a YouTube service for the configured API key.
//
// A positive rateLimit caps search requests per second; zero means unlimited.
func NewYouTubeService(config shared.YouTubeConfig, rateLimit float64, logger *log.Logger) *YouTubeService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}

	return &YouTubeService{config: config, limiter: limiter, logger: logger}
}

func (y *YouTubeService) Name() string {
	return "YouTube"
}

// SetHTTPClient routes every API call through c. Used with a custom endpoint in tests.
func (y *YouTubeService) SetHTTPClient(c *http.Client) {
	y.httpClient = c
	y.search = nil
	y.writer = nil
}

// Authorized reports whether playlist writes are possible.
func (y *YouTubeService) Authorized() bool {
	return y.writer != nil
}

func (y *YouTubeService) withEndpoint(opts ...option.ClientOption) []option.ClientOption {
	if y.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(y.config.Endpoint, "/")+"/"))
	}
	return opts
}

func (y *YouTubeService) searchService(ctx context.Context) (*youtube.Service, error) {
	if y.search != nil {
		return y.search, nil
	}
	if y.config.APIKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key is required", shared.ErrMissingCredentials)
	}

	auth := option.WithAPIKey(y.config.APIKey)
	if y.httpClient != nil {
		// option.WithAPIKey is ignored once a client is supplied.
		client := *y.httpClient
		client.Transport = &apiKeyTransport{key: y.config.APIKey, base: y.httpClient.Transport}
		auth = option.WithHTTPClient(&client)
	}

	svc, err := youtube.NewService(ctx, y.withEndpoint(auth)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube search client: %w", err)
	}
	y.search = svc
	return svc, nil
}

// Search returns the id of the first video matching query.
//
// found is false when the search had no hits. A failed API call returns an error.
func (y *YouTubeService) Search(ctx context.Context, query string) (videoID string, found bool, err error) {
	svc, err := y.searchService(ctx)
	if err != nil {
		return "", false, err
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	resp, err := svc.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, apiError("search", err)
	}

	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			y.logger.Debug("resolved video", "query", query, "video", item.Id.VideoId)
			return item.Id.VideoId, true, nil
		}
	}

	y.logger.Infof("No video found for query: %s", query)
	return "", false, nil
}

// Authorize runs the authorizer and prepares the client used for playlist writes.
func (y *YouTubeService) Authorize(ctx context.Context, a Authorizer) error {
	ts, err := a.Authorize(ctx)
	if err != nil {
		return err
	}
	return y.UseTokenSource(ctx, ts)
}

// UseTokenSource prepares the write client from an existing token source.
func (y *YouTubeService) UseTokenSource(ctx context.Context, ts oauth2.TokenSource) error {
	base := y.httpClient
	if base == nil {
		base = http.DefaultClient
	}
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)

	svc, err := youtube.NewService(ctx, y.withEndpoint(option.WithHTTPClient(client))...)
	if err != nil {
		return fmt.Errorf("failed to create youtube client: %w", err)
	}
	y.writer = svc
	return nil
}

// CreatePlaylist creates an empty playlist and returns it.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, details models.PlaylistDetails) (*models.PlaylistResult, error) {
	if y.writer == nil {
		return nil, shared.ErrNotAuthenticated
	}

	playlist := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{
			Title:       details.Title,
			Description: details.Description,
		},
		Status: &youtube.PlaylistStatus{PrivacyStatus: details.Privacy},
	}

	created, err := y.writer.Playlists.Insert([]string{"snippet", "status"}, playlist).Context(ctx).Do()
	if err != nil {
		return nil, apiError("playlist create", err)
	}

	result := &models.PlaylistResult{
		ID:          created.Id,
		Title:       details.Title,
		Description: details.Description,
		Privacy:     details.Privacy,
	}
	if created.Snippet != nil {
		result.ChannelID = created.Snippet.ChannelId
	}

	y.logger.Info("created youtube playlist", "id", result.ID, "title", result.Title)
	return result, nil
}

// InsertItem appends one video to the end of a playlist.
func (y *YouTubeService) InsertItem(ctx context.Context, playlistID, videoID string) error {
	if y.writer == nil {
		return shared.ErrNotAuthenticated
	}

	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: videoKind, VideoId: videoID},
		},
	}

	if _, err := y.writer.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return apiError("playlist item insert", err)
	}

	y.logger.Debug("inserted playlist item", "playlist", playlistID, "video", videoID)
	return nil
}

// apiKeyTransport adds the API key to every request sent through a caller-supplied client.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return base.RoundTrip(r)
}

// apiError maps a Google API error to the shared error set.
func apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: youtube %s: %v", shared.ErrTokenExpired, op, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: youtube %s: %v", shared.ErrPlaylistNotFound, op, err)
		case http.StatusServiceUnavailable:
			return fmt.Errorf("%w: youtube %s: %v", shared.ErrServiceUnavailable, op, err)
		}
	}
	return fmt.Errorf("%w: youtube %s: %v", shared.ErrAPIRequest, op, err)
}
