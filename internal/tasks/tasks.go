// package tasks implements the Spotify → YouTube transfer pipeline.
//
// The core abstraction is Pipeline, which drives one run through its stages in order.
// Each stage emits progress updates via a channel for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
)

// Source reads the tracks of the playlist being transferred.
type Source interface {
	FetchToken(ctx context.Context) (string, error)
	ReadPlaylist(ctx context.Context, token, playlistID string) ([]models.TrackDescriptor, error)
}

// Destination resolves tracks to videos and writes the new playlist.
type Destination interface {
	Search(ctx context.Context, query string) (videoID string, found bool, err error)
	Authorize(ctx context.Context, a services.Authorizer) error
	CreatePlaylist(ctx context.Context, details models.PlaylistDetails) (*models.PlaylistResult, error)
	InsertItem(ctx context.Context, playlistID, videoID string) error
}

// RunRecorder persists run progress. Recording failures are logged and never stop a transfer.
type RunRecorder interface {
	StartRun(run *models.Run) error
	UpdateRun(run *models.Run) error
	SaveResolutions(runID string, resolutions models.Resolutions) error
}

// Options selects what a single run transfers.
type Options struct {
	PlaylistID string
	Details    models.PlaylistDetails
	DryRun     bool // stop once videos are resolved
}

// TransferResult contains all data produced by a run, including partial data from a failed one.
type TransferResult struct {
	Run         *models.Run
	Tracks      []models.TrackDescriptor
	Resolutions models.Resolutions
	Playlist    *models.PlaylistResult
}

// StageError reports the last stage a failed run reached.
type StageError struct {
	Stage models.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transfer failed after %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline runs the transfer stages strictly in sequence. Every stage result is checked before the next starts.
type Pipeline struct {
	source     Source
	dest       Destination
	authorizer services.Authorizer
	recorder   RunRecorder
	logger     *log.Logger
}

// NewPipeline creates a pipeline between source and dest. authorizer supplies write consent for dest.
func NewPipeline(source Source, dest Destination, authorizer services.Authorizer, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{source: source, dest: dest, authorizer: authorizer, logger: logger}
}

// SetRecorder enables run persistence.
func (p *Pipeline) SetRecorder(r RunRecorder) {
	p.recorder = r
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (p *Pipeline) record(fn func() error) {
	if p.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		p.logger.Warn("failed to record run", "error", err)
	}
}

func (p *Pipeline) advance(run *models.Run, stage models.Stage) {
	run.Advance(stage)
	p.logger.Debug("stage reached", "stage", stage)
	p.record(func() error { return p.recorder.UpdateRun(run) })
}

// fail ends the run with err and returns it wrapped in a [StageError].
func (p *Pipeline) fail(progress chan<- ProgressUpdate, result *TransferResult, err error) (*TransferResult, error) {
	run := result.Run
	run.Complete(err)
	p.record(func() error { return p.recorder.UpdateRun(run) })
	p.sendProgress(progress, failedUpdate(run.Stage, err))
	return result, &StageError{Stage: run.Stage, Err: err}
}

// Run performs a full Spotify → YouTube transfer:
//
//	token → tracks → videos → playlist → items
//
// The first failing stage ends the run; nothing downstream of it is called. The returned result
// holds whatever the completed stages produced.
func (p *Pipeline) Run(ctx context.Context, opts Options, progress chan<- ProgressUpdate) (*TransferResult, error) {
	if p.source == nil || p.dest == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source and a destination", shared.ErrServiceUnavailable)
	}
	if opts.PlaylistID == "" {
		return nil, fmt.Errorf("%w: source playlist id", shared.ErrMissingArgument)
	}

	run := models.NewRun(opts.PlaylistID, opts.DryRun)
	run.SetID(shared.GenerateID())
	result := &TransferResult{Run: run}
	p.record(func() error { return p.recorder.StartRun(run) })

	p.sendProgress(progress, tokenUpdate())
	token, err := p.source.FetchToken(ctx)
	if err != nil {
		return p.fail(progress, result, err)
	}
	p.advance(run, models.TokenAcquired)

	p.sendProgress(progress, readTracksUpdate(opts.PlaylistID))
	tracks, err := p.source.ReadPlaylist(ctx, token, opts.PlaylistID)
	if err != nil {
		return p.fail(progress, result, err)
	}
	if len(tracks) == 0 {
		return p.fail(progress, result, shared.ErrNoItems)
	}
	result.Tracks = tracks
	run.TracksTotal = len(tracks)
	p.advance(run, models.TracksRead)
	p.sendProgress(progress, tracksReadUpdate(len(tracks)))

	resolutions, err := p.resolve(ctx, tracks, progress)
	result.Resolutions = resolutions
	run.TracksResolved = resolutions.FoundCount()
	if err != nil {
		if len(resolutions) > 0 {
			p.record(func() error { return p.recorder.SaveResolutions(run.ID(), resolutions) })
		}
		return p.fail(progress, result, err)
	}
	p.advance(run, models.VideosResolved)
	p.record(func() error { return p.recorder.SaveResolutions(run.ID(), resolutions) })
	p.sendProgress(progress, resolvedUpdate(run.TracksResolved, run.TracksTotal))

	if opts.DryRun {
		return p.finish(progress, result), nil
	}

	videoIDs := resolutions.VideoIDs()
	if len(videoIDs) == 0 {
		return p.fail(progress, result, shared.ErrNoMatches)
	}

	p.sendProgress(progress, authorizeUpdate())
	if err := p.dest.Authorize(ctx, p.authorizer); err != nil {
		return p.fail(progress, result, err)
	}

	p.sendProgress(progress, createPlaylistUpdate(opts.Details))
	playlist, err := p.dest.CreatePlaylist(ctx, opts.Details)
	if err != nil {
		return p.fail(progress, result, err)
	}
	result.Playlist = playlist
	run.DestPlaylistID = playlist.ID
	p.advance(run, models.PlaylistCreated)
	p.sendProgress(progress, playlistCreatedUpdate(playlist))

	for i, id := range videoIDs {
		p.sendProgress(progress, insertItemUpdate(i+1, len(videoIDs), id))
		if err := p.dest.InsertItem(ctx, playlist.ID, id); err != nil {
			return p.fail(progress, result, err)
		}
		playlist.Inserted++
		run.ItemsInserted = playlist.Inserted
	}
	p.advance(run, models.ItemsInserted)

	return p.finish(progress, result), nil
}

// resolve searches for every track in order, keeping one entry per track.
func (p *Pipeline) resolve(ctx context.Context, tracks []models.TrackDescriptor, progress chan<- ProgressUpdate) (models.Resolutions, error) {
	resolutions := make(models.Resolutions, 0, len(tracks))
	for i, track := range tracks {
		query := track.Display()
		p.sendProgress(progress, searchUpdate(i+1, len(tracks), query))

		videoID, found, err := p.dest.Search(ctx, query)
		if err != nil {
			return resolutions, err
		}
		resolutions = append(resolutions, models.Resolution{
			Position: i,
			Track:    track,
			Query:    query,
			VideoID:  videoID,
			Found:    found,
		})
	}
	return resolutions, nil
}

func (p *Pipeline) finish(progress chan<- ProgressUpdate, result *TransferResult) *TransferResult {
	run := result.Run
	run.Advance(models.Done)
	run.Complete(nil)
	p.record(func() error { return p.recorder.UpdateRun(run) })
	p.sendProgress(progress, doneUpdate(result))
	return result
}

// FailedStage extracts the last reached stage from a pipeline error.
func FailedStage(err error) (models.Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return models.Idle, false
}
