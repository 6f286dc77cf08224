package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/sp2yt/internal/formatter"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
	"github.com/desertthunder/sp2yt/internal/ui"
	"github.com/urfave/cli/v3"
)

// plainProgressBuffer sizes the status line queue between the pipeline and the console.
var plainProgressBuffer = 256

// TransferRun runs the full Spotify → YouTube pipeline.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	id, err := playlistID(cmd, config)
	if err != nil {
		return err
	}
	applyDestinationFlags(cmd, config)

	dryRun := cmd.Bool("dry-run")
	if err := validateTransfer(config, dryRun); err != nil {
		return err
	}

	var reportFormat formatter.Format
	if f := cmd.String("report-format"); f != "" {
		if reportFormat, err = formatter.ParseFormat(f); err != nil {
			return err
		}
	}

	logger := r.logger
	useTUI := cmd.Bool("tui")
	if useTUI {
		fileLogger, closeLog, err := r.tuiLogger()
		if err != nil {
			return err
		}
		defer closeLog()
		logger = fileLogger
	}

	spotify := r.spotifyService(config, logger)
	youtube := r.youtubeService(config, logger)

	var flow *services.InstalledFlow
	var authorizer services.Authorizer
	if !dryRun {
		if flow, err = r.installedFlow(config, logger); err != nil {
			return err
		}
		authorizer = flow
	}

	var source *models.SourcePlaylist
	if cmd.Bool("title-from-source") {
		if source, err = r.sourceDetails(ctx, spotify, id, config); err != nil {
			return err
		}
	}

	pipeline := tasks.NewPipeline(spotify, youtube, authorizer, logger)

	repo, db, err := r.openLedger(config)
	if err != nil {
		return err
	}
	if repo != nil {
		defer db.Close()
		pipeline.SetRecorder(repo)
	}

	opts := tasks.Options{
		PlaylistID: id,
		Details: models.PlaylistDetails{
			Title:       config.Destination.Title,
			Description: config.Destination.Description,
			Privacy:     config.Destination.Privacy,
		},
		DryRun: dryRun,
	}

	logger.Info("starting transfer", "playlist", id, "title", opts.Details.Title, "dry_run", dryRun)

	var result *tasks.TransferResult
	if useTUI {
		result, err = r.transferTUI(ctx, pipeline, opts, flow)
	} else {
		result, err = r.transferPlain(ctx, pipeline, opts)
	}

	if path := cmd.String("report"); path != "" && result != nil {
		report := &formatter.Report{Run: result.Run, Source: source, Playlist: result.Playlist, Resolutions: result.Resolutions}
		if rerr := formatter.WriteReport(report, path, reportFormat); rerr != nil {
			logger.Error("failed to write report", "path", path, "error", rerr)
		} else {
			r.writePlain("Report written to %s\n", path)
		}
	}

	if err != nil {
		return err
	}

	r.writeSummary(result)
	return nil
}

func applyDestinationFlags(cmd *cli.Command, config *shared.Config) {
	if cmd.Bool("all-pages") {
		config.Source.Paginate = true
	}
	if v := cmd.String("title"); v != "" {
		config.Destination.Title = v
	}
	if v := cmd.String("description"); v != "" {
		config.Destination.Description = v
	}
	if v := cmd.String("privacy"); v != "" {
		config.Destination.Privacy = v
	}
}

// validateTransfer checks the configuration a run needs. A dry run never writes, so it needs no OAuth client.
func validateTransfer(config *shared.Config, dryRun bool) error {
	if !dryRun {
		return config.Validate()
	}
	if err := config.Credentials.Spotify.Validate(); err != nil {
		return err
	}
	if config.Credentials.YouTube.APIKey == "" {
		return fmt.Errorf("%w: youtube api_key is required (YT_API_KEY)", shared.ErrMissingCredentials)
	}
	return nil
}

// sourceDetails copies the Spotify playlist's name and description into the destination settings.
func (r *Runner) sourceDetails(ctx context.Context, spotify *services.SpotifyService, id string, config *shared.Config) (*models.SourcePlaylist, error) {
	token, err := spotify.FetchToken(ctx)
	if err != nil {
		return nil, err
	}
	source, err := spotify.PlaylistInfo(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist details: %w", err)
	}
	if source.Name != "" {
		config.Destination.Title = source.Name
	}
	if source.Description != "" {
		config.Destination.Description = source.Description
	}
	return source, nil
}

// transferPlain runs the pipeline, printing each progress update as a status line.
func (r *Runner) transferPlain(ctx context.Context, pipeline *tasks.Pipeline, opts tasks.Options) (*tasks.TransferResult, error) {
	r.writePlain("Starting playlist transfer...\n")
	r.writePlain("Source: %s\n", opts.PlaylistID)
	if !opts.DryRun {
		r.writePlain("Destination: %s (%s)\n", opts.Details.Title, opts.Details.Privacy)
	}
	r.writePlain("\n")

	progressCh := make(chan tasks.ProgressUpdate, plainProgressBuffer)
	printed := make(chan struct{})
	sawFinal := false
	go func() {
		defer close(printed)
		for update := range progressCh {
			if update.Terminal() {
				sawFinal = true
			}
			r.printProgress(update)
		}
	}()

	result, err := pipeline.Run(ctx, opts, progressCh)
	close(progressCh)
	<-printed

	// The pipeline drops updates when the channel is full.
	if !sawFinal {
		r.printProgress(tasks.FinalUpdate(result, err))
	}
	return result, err
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.AcquireToken:
		r.writePlain("🔑 %s\n", update.Message)
	case tasks.ReadTracks:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.ResolveVideos:
		r.writePlain("   🔍 %s\n", update.Message)
	case tasks.Authorize:
		r.writePlain("\n🔐 %s\n", update.Message)
	case tasks.CreatePlaylist:
		r.writePlain("📝 %s\n", update.Message)
	case tasks.InsertItems:
		r.writePlain("   ➕ %s\n", update.Message)
	case tasks.Complete:
		r.writePlain("\n%s\n", ui.Success("✓ "+update.Message))
	case tasks.Failed:
		r.writePlain("\n%s\n", ui.Failure("✗ "+update.Message))
	}
}

func (r *Runner) writeSummary(result *tasks.TransferResult) {
	res := result.Resolutions

	r.writePlain("\n")
	if result.Playlist == nil {
		r.writePlainHeader("Dry Run Complete")
	} else {
		r.writePlainHeader("Transfer Complete!")
	}
	r.writePlain("Tracks: %d\n", len(result.Tracks))
	r.writePlain("Matched: %d/%d\n", res.FoundCount(), len(res))

	if misses := res.Misses(); len(misses) > 0 {
		r.writePlain("\n%s\n", ui.Warning(fmt.Sprintf("No video found for %d tracks:", len(misses))))
		for _, m := range misses {
			r.writePlain("  - %s\n", m.Query)
		}
	}

	if result.Playlist != nil {
		r.writePlain("\nAdded: %d videos\n", result.Playlist.Inserted)
		r.writePlain("Playlist ID: %s\n", result.Playlist.ID)
	}

	if result.Run != nil {
		r.logger.Debug("run finished", "run", result.Run.ID(), "duration", result.Run.Duration(time.Now()))
	}
}
