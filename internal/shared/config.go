package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Privacy values accepted by the YouTube playlists API.
var privacyStatuses = []string{"public", "private", "unlisted"}

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Source      SourceConfig      `toml:"source"`
	Destination DestinationConfig `toml:"destination"`
	Search      SearchConfig      `toml:"search"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SP_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SP_CLIENT_SECRET"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// YouTubeConfig contains the YouTube Data API key and OAuth client settings.
type YouTubeConfig struct {
	APIKey            string `toml:"api_key" env:"YT_API_KEY"`
	ClientSecretsFile string `toml:"client_secrets_file" env:"YT_CLIENT_SECRETS_FILE"`
	TokenPath         string `toml:"token_path" env:"YT_TOKEN_PATH"`
	Endpoint          string `toml:"endpoint"` // overrides the API base URL, mostly for testing
}

// SourceConfig selects the Spotify playlist to read.
type SourceConfig struct {
	PlaylistID string `toml:"playlist_id" env:"SP2YT_PLAYLIST_ID"`
	Paginate   bool   `toml:"paginate"`
}

// DestinationConfig describes the playlist created on YouTube.
type DestinationConfig struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Privacy     string `toml:"privacy"`
}

// SearchConfig tunes the video search stage.
type SearchConfig struct {
	RateLimit float64 `toml:"rate_limit"`
}

// DatabaseConfig contains run ledger settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"SP2YT_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the loopback OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for the callback listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedirectURL is the OAuth redirect registered with Google for the installed app.
func (s ServerConfig) RedirectURL() string {
	return fmt.Sprintf("http://%s/", s.Addr())
}

// Validate checks that Spotify client credentials are present.
func (c SpotifyConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required (SP_CLIENT_ID, SP_CLIENT_SECRET)", ErrMissingCredentials)
	}
	if c.TokenURL == "" || c.APIURL == "" {
		return fmt.Errorf("%w: spotify token_url and api_url must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Validate checks that the YouTube API key and client secret file are configured.
func (c YouTubeConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: youtube api_key is required (YT_API_KEY)", ErrMissingCredentials)
	}
	if c.ClientSecretsFile == "" {
		return fmt.Errorf("%w: youtube client_secrets_file is required", ErrMissingCredentials)
	}
	return nil
}

// Validate checks the destination playlist settings.
func (c DestinationConfig) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("%w: destination title must not be empty", ErrInvalidConfig)
	}
	if !slices.Contains(privacyStatuses, c.Privacy) {
		return fmt.Errorf("%w: destination privacy %q (must be public, private or unlisted)", ErrInvalidConfig, c.Privacy)
	}
	return nil
}

// Validate checks every section needed for a full transfer.
func (c *Config) Validate() error {
	if err := c.Credentials.Spotify.Validate(); err != nil {
		return err
	}
	if err := c.Credentials.YouTube.Validate(); err != nil {
		return err
	}
	if c.Source.PlaylistID == "" {
		return fmt.Errorf("%w: source playlist_id must not be empty", ErrInvalidConfig)
	}
	if err := c.Destination.Validate(); err != nil {
		return err
	}
	if c.Search.RateLimit < 0 {
		return fmt.Errorf("%w: search rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// LoadConfig reads a TOML configuration file from the specified path on top of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// ApplyEnv loads the given dotenv files (missing files are skipped) and overlays tagged environment variables onto config.
func ApplyEnv(config *Config, envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ResolveConfig builds the effective configuration: embedded defaults, then the config file at path
// if it exists, then .env, then the process environment.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := ApplyEnv(config, ".env"); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
