package tasks

import (
	"errors"
	"fmt"

	"github.com/desertthunder/sp2yt/internal/models"
)

// ProgressUpdate represents a progress event during a transfer.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
	Err     error  // Set on the final update of a failed run
}

// Operation phase enumeration
type Phase int

const (
	AcquireToken Phase = iota
	ReadTracks
	ResolveVideos
	Authorize
	CreatePlaylist
	InsertItems
	Complete
	Failed
)

func (p Phase) String() string {
	switch p {
	case AcquireToken:
		return "acquire_token"
	case ReadTracks:
		return "read_tracks"
	case ResolveVideos:
		return "resolve_videos"
	case Authorize:
		return "authorize"
	case CreatePlaylist:
		return "create_playlist"
	case InsertItems:
		return "insert_items"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no further updates follow.
func (u ProgressUpdate) Terminal() bool {
	return u.Phase == Complete || u.Phase == Failed
}

func tokenUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   AcquireToken,
		Step:    1,
		Total:   1,
		Message: "Requesting Spotify access token...",
	}
}

func readTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadTracks,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Reading Spotify playlist %s...", playlistID),
	}
}

func tracksReadUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks", count),
	}
}

func searchUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, query),
	}
}

func resolvedUpdate(found, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveVideos,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Resolved %d of %d tracks to videos", found, total),
	}
}

func authorizeUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authorize,
		Step:    1,
		Total:   1,
		Message: "Authorizing YouTube account...",
	}
}

func createPlaylistUpdate(details models.PlaylistDetails) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating %s playlist %q...", details.Privacy, details.Title),
	}
}

func playlistCreatedUpdate(pl *models.PlaylistResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Title, pl.ID),
		Data:    pl,
	}
}

func insertItemUpdate(step, total int, videoID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   InsertItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding video %s", step, total, videoID),
	}
}

func doneUpdate(result *TransferResult) ProgressUpdate {
	msg := "Transfer complete"
	switch {
	case result.Playlist != nil:
		msg = fmt.Sprintf("Transfer complete: %d videos added to %s", result.Playlist.Inserted, result.Playlist.ID)
	case result.Run.DryRun:
		msg = fmt.Sprintf("Dry run complete: %d of %d tracks resolved", result.Run.TracksResolved, result.Run.TracksTotal)
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    result,
	}
}

func failedUpdate(stage models.Stage, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Failed after %s: %v", stage, err),
		Err:     err,
	}
}

// FinalUpdate rebuilds the terminal update for a finished run, for consumers that may have missed it.
func FinalUpdate(result *TransferResult, err error) ProgressUpdate {
	if err == nil && result != nil && result.Run != nil {
		return doneUpdate(result)
	}

	var se *StageError
	if errors.As(err, &se) {
		return failedUpdate(se.Stage, se.Err)
	}
	if err == nil {
		err = errors.New("transfer produced no result")
	}
	return failedUpdate(models.Idle, err)
}
