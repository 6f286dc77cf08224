package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/server"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

const defaultConsentTimeout = 2 * time.Minute

// YouTubeScopes are requested during installed-app consent.
var YouTubeScopes = []string{youtube.YoutubeScope, youtube.YoutubeForceSslScope}

// InstalledFlow is an [Authorizer] running Google's installed-app flow: the consent page is opened
// in a browser and the authorization code arrives on a loopback redirect.
//
// When a token path is set, the token is cached there and reused on later runs.
type InstalledFlow struct {
	config    *oauth2.Config
	listen    string
	tokenPath string
	timeout   time.Duration
	logger    *log.Logger

	// OpenURL shows the consent page to the user. Defaults to [shared.OpenBrowser].
	OpenURL func(url string) error
	// Prompt receives status lines meant for the terminal.
	Prompt func(format string, args ...any)
}

// NewInstalledFlow reads the OAuth client secrets file and prepares a flow redirecting to srv.
func NewInstalledFlow(clientSecretsFile string, srv shared.ServerConfig, tokenPath string, logger *log.Logger) (*InstalledFlow, error) {
	if clientSecretsFile == "" {
		return nil, fmt.Errorf("%w: youtube client_secrets_file is required", shared.ErrMissingCredentials)
	}

	data, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read client secrets: %v", shared.ErrMissingCredentials, err)
	}

	config, err := google.ConfigFromJSON(data, YouTubeScopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse client secrets: %v", shared.ErrInvalidConfig, err)
	}

	return NewInstalledFlowFromConfig(config, srv, tokenPath, logger), nil
}

// NewInstalledFlowFromConfig builds a flow from an existing OAuth config, overriding its redirect URL.
func NewInstalledFlowFromConfig(config *oauth2.Config, srv shared.ServerConfig, tokenPath string, logger *log.Logger) *InstalledFlow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	config.RedirectURL = srv.RedirectURL()

	return &InstalledFlow{
		config:    config,
		listen:    srv.Addr(),
		tokenPath: tokenPath,
		timeout:   defaultConsentTimeout,
		logger:    logger,
		OpenURL:   shared.OpenBrowser,
		Prompt:    func(string, ...any) {},
	}
}

// SetTimeout changes how long to wait for the consent redirect.
func (f *InstalledFlow) SetTimeout(d time.Duration) {
	if d > 0 {
		f.timeout = d
	}
}

// Config returns the underlying OAuth config.
func (f *InstalledFlow) Config() *oauth2.Config {
	return f.config
}

// Authorize returns a refreshing token source, reusing a cached token when one exists.
func (f *InstalledFlow) Authorize(ctx context.Context) (oauth2.TokenSource, error) {
	if token, err := f.loadToken(); err == nil {
		f.logger.Debug("using cached youtube token", "path", f.tokenPath)
		return f.tokenSource(ctx, token), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("ignoring unreadable youtube token cache", "path", f.tokenPath, "error", err)
	}

	token, err := f.consent(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.saveToken(token); err != nil {
		f.logger.Warn("failed to cache youtube token", "path", f.tokenPath, "error", err)
	}
	return f.tokenSource(ctx, token), nil
}

func (f *InstalledFlow) tokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return &cachingTokenSource{
		base:   f.config.TokenSource(ctx, token),
		last:   token.AccessToken,
		save:   f.saveToken,
		logger: f.logger,
		path:   f.tokenPath,
	}
}

// consent serves the loopback redirect, opens the consent page, and waits for the code exchange.
func (f *InstalledFlow) consent(ctx context.Context) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(ctx, f.config, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(f.logger))
	router.Handler(handler)

	cb, err := server.Listen(f.listen, router)
	if err != nil {
		return nil, fmt.Errorf("failed to start OAuth callback server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cb.Shutdown(shutdownCtx); err != nil {
			f.logger.Warn("error shutting down server", "error", err)
		}
	}()
	f.logger.Infof("starting OAuth server for youtube authorization at %v", cb.Addr())

	authURL := f.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	f.Prompt("→ Opening browser for YouTube authorization...\n")
	if err := f.OpenURL(authURL); err != nil {
		f.logger.Warnf("failed to open browser automatically %v", err)
		f.Prompt("⚠ Could not open browser automatically.\n")
		f.Prompt("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	f.Prompt("→ Waiting for authorization (%v timeout)...\n", f.timeout)

	timeout := time.NewTimer(f.timeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-cb.Errors():
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, f.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func (f *InstalledFlow) loadToken() (*oauth2.Token, error) {
	if f.tokenPath == "" {
		return nil, fs.ErrNotExist
	}

	data, err := os.ReadFile(f.tokenPath)
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("token cache %s holds no token", f.tokenPath)
	}
	return &token, nil
}

func (f *InstalledFlow) saveToken(token *oauth2.Token) error {
	if f.tokenPath == "" {
		return nil
	}

	data, err := shared.MarshalJSON(token, true)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.tokenPath), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	return os.WriteFile(f.tokenPath, data, 0o600)
}

// cachingTokenSource writes refreshed tokens back to the cache.
type cachingTokenSource struct {
	base   oauth2.TokenSource
	last   string
	save   func(*oauth2.Token) error
	logger *log.Logger
	path   string
}

func (c *cachingTokenSource) Token() (*oauth2.Token, error) {
	token, err := c.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
	}
	if token.AccessToken != c.last {
		c.last = token.AccessToken
		if err := c.save(token); err != nil {
			c.logger.Warn("failed to cache refreshed youtube token", "path", c.path, "error", err)
		}
	}
	return token, nil
}
