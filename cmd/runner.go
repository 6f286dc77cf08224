package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/repositories"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built per command from the resolved configuration.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // skips file and environment loading when set
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		transferCommand, sourceCommand, youtubeCommand, runsCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolveConfig returns a copy of the effective configuration and applies --verbose.
func (r *Runner) resolveConfig(cmd *cli.Command) (*shared.Config, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config != nil {
		config := *r.config
		return &config, nil
	}

	config, err := shared.ResolveConfig(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

func (r *Runner) spotifyService(config *shared.Config, logger *log.Logger) *services.SpotifyService {
	svc := services.NewSpotifyService(config.Credentials.Spotify, shared.WithLogger(logger, "service", "spotify"))
	svc.SetPaginate(config.Source.Paginate)
	if r.httpClient != nil {
		svc.SetHTTPClient(r.httpClient)
	}
	return svc
}

func (r *Runner) youtubeService(config *shared.Config, logger *log.Logger) *services.YouTubeService {
	svc := services.NewYouTubeService(config.Credentials.YouTube, config.Search.RateLimit, shared.WithLogger(logger, "service", "youtube"))
	if r.httpClient != nil {
		svc.SetHTTPClient(r.httpClient)
	}
	return svc
}

func (r *Runner) installedFlow(config *shared.Config, logger *log.Logger) (*services.InstalledFlow, error) {
	yt := config.Credentials.YouTube
	flow, err := services.NewInstalledFlow(yt.ClientSecretsFile, config.Server, yt.TokenPath, logger)
	if err != nil {
		return nil, err
	}
	flow.OpenURL = r.openURL
	flow.Prompt = func(format string, args ...any) { r.writePlain(format, args...) }
	return flow, nil
}

// openLedger opens the run ledger. It returns a nil repository when database.path is empty.
func (r *Runner) openLedger(config *shared.Config) (*repositories.RunRepository, *sql.DB, error) {
	if config.Database.Path == "" {
		return nil, nil, nil
	}

	db, err := shared.OpenLedger(config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return repositories.NewRunRepository(db), db, nil
}

// requireLedger is [Runner.openLedger] for commands that cannot work without one.
func (r *Runner) requireLedger(config *shared.Config) (*repositories.RunRepository, *sql.DB, error) {
	if config.Database.Path == "" {
		return nil, nil, fmt.Errorf("%w: database.path is not set (SP2YT_DATABASE_PATH)", shared.ErrMissingConfig)
	}
	return r.openLedger(config)
}

func playlistID(cmd *cli.Command, config *shared.Config) (string, error) {
	if id := cmd.String("playlist"); id != "" {
		config.Source.PlaylistID = id
	}
	if config.Source.PlaylistID == "" {
		return "", fmt.Errorf("%w: --playlist or source.playlist_id", shared.ErrMissingArgument)
	}
	return config.Source.PlaylistID, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
