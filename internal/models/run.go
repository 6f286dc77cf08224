package models

import (
	"fmt"
	"time"
)

// Stage is a point in the per-run state machine. Stages only move forward.
type Stage int

const (
	Idle Stage = iota
	TokenAcquired
	TracksRead
	VideosResolved
	PlaylistCreated
	ItemsInserted
	Done
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case TokenAcquired:
		return "token_acquired"
	case TracksRead:
		return "tracks_read"
	case VideosResolved:
		return "videos_resolved"
	case PlaylistCreated:
		return "playlist_created"
	case ItemsInserted:
		return "items_inserted"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ParseStage is the inverse of [Stage.String].
func ParseStage(s string) (Stage, error) {
	for st := Idle; st <= Done; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return Idle, fmt.Errorf("unknown stage %q", s)
}

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is the ledger entry for one pipeline execution.
type Run struct {
	id               string
	Sequence         int
	SourcePlaylistID string
	DestPlaylistID   string
	Stage            Stage
	Status           RunStatus
	TracksTotal      int
	TracksResolved   int
	ItemsInserted    int
	DryRun           bool
	ErrorMessage     string
	StartedAt        time.Time
	CompletedAt      *time.Time
	createdAt        time.Time
	updatedAt        time.Time
}

// NewRun starts a run for the given source playlist.
func NewRun(sourcePlaylistID string, dryRun bool) *Run {
	now := time.Now().UTC()
	return &Run{
		SourcePlaylistID: sourcePlaylistID,
		Stage:            Idle,
		Status:           RunRunning,
		DryRun:           dryRun,
		StartedAt:        now,
		createdAt:        now,
		updatedAt:        now,
	}
}

// RestoreRun rebuilds a run read from storage.
func RestoreRun(id string, createdAt, updatedAt time.Time) *Run {
	return &Run{id: id, createdAt: createdAt, updatedAt: updatedAt}
}

func (r *Run) ID() string               { return r.id }
func (r *Run) SetID(id string)          { r.id = id }
func (r *Run) CreatedAt() time.Time     { return r.createdAt }
func (r *Run) UpdatedAt() time.Time     { return r.updatedAt }
func (r *Run) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *Run) Finished() bool           { return r.CompletedAt != nil }
func (r *Run) Advance(s Stage)          { r.Stage = max(r.Stage, s) }

// Duration is the elapsed time of the run, up to now while it is still running.
func (r *Run) Duration(now time.Time) time.Duration {
	end := now
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(r.StartedAt)
}

// Complete marks the run finished. A nil err means success.
func (r *Run) Complete(err error) {
	now := time.Now().UTC()
	r.CompletedAt = &now
	if err != nil {
		r.Status = RunFailed
		r.ErrorMessage = err.Error()
		return
	}
	r.Status = RunSucceeded
}

// Validate checks required fields and the status/stage combination.
func (r *Run) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run id is required")
	}
	if r.SourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	switch r.Status {
	case RunRunning, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	if r.Stage < Idle || r.Stage > Done {
		return fmt.Errorf("invalid run stage %d", r.Stage)
	}
	if r.TracksResolved > r.TracksTotal {
		return fmt.Errorf("resolved count %d exceeds track total %d", r.TracksResolved, r.TracksTotal)
	}
	if r.ItemsInserted > r.TracksResolved {
		return fmt.Errorf("inserted count %d exceeds resolved count %d", r.ItemsInserted, r.TracksResolved)
	}
	return nil
}

var _ Model = (*Run)(nil)
