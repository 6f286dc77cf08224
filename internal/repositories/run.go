package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
)

const runColumns = `id, sequence, source_playlist_id, dest_playlist_id, stage, status, tracks_total, tracks_resolved,
		items_inserted, dry_run, error_message, started_at, completed_at, created_at, updated_at`

// RunRepository implements models.Repository[*models.Run] for the transfer ledger.
//
// It also satisfies tasks.RunRecorder, so a pipeline can record into it directly.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with a generated sequence, and an ID unless one is already set.
func (r *RunRepository) Create(run *models.Run) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	run.Sequence = sequence

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		run.ID(),
		sequence,
		run.SourcePlaylistID,
		nullString(run.DestPlaylistID),
		run.Stage.String(),
		string(run.Status),
		run.TracksTotal,
		run.TracksResolved,
		run.ItemsInserted,
		run.DryRun,
		nullString(run.ErrorMessage),
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	return scanRun(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *RunRepository) GetBySequence(sequence int) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE sequence = ?`
	return scanRun(r.db.QueryRow(query, sequence))
}

// Update writes the run's progress fields
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET dest_playlist_id = ?, stage = ?, status = ?, tracks_total = ?, tracks_resolved = ?, items_inserted = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		nullString(run.DestPlaylistID),
		run.Stage.String(),
		string(run.Status),
		run.TracksTotal,
		run.TracksResolved,
		run.ItemsInserted,
		nullString(run.ErrorMessage),
		run.CompletedAt,
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID())
	}

	return nil
}

// Delete removes a run and its resolutions
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}

	return nil
}

// List retrieves runs newest first. Supported criteria: "status", "source_playlist_id" (strings) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if source, ok := criteria["source_playlist_id"].(string); ok && source != "" {
		query += " AND source_playlist_id = ?"
		args = append(args, source)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// StartRun records a new run.
func (r *RunRepository) StartRun(run *models.Run) error {
	return r.Create(run)
}

// UpdateRun records a stage transition or the final outcome.
func (r *RunRepository) UpdateRun(run *models.Run) error {
	return r.Update(run)
}

// SaveResolutions replaces the stored resolutions of a run.
func (r *RunRepository) SaveResolutions(runID string, resolutions models.Resolutions) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM resolutions WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear resolutions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO resolutions (run_id, position, track_id, track_name, artists, query, video_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range resolutions {
		artists, err := json.Marshal(res.Track.Artists)
		if err != nil {
			return fmt.Errorf("failed to encode artists: %w", err)
		}

		var videoID sql.NullString
		if res.Found {
			videoID = sql.NullString{String: res.VideoID, Valid: true}
		}

		if _, err := stmt.Exec(runID, res.Position, nullString(res.Track.ID), res.Track.Name, string(artists), res.Query, videoID); err != nil {
			return fmt.Errorf("failed to insert resolution %d: %w", res.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resolutions: %w", err)
	}
	return nil
}

// Resolutions retrieves a run's resolutions in source order.
func (r *RunRepository) Resolutions(runID string) (models.Resolutions, error) {
	rows, err := r.db.Query(`
		SELECT position, track_id, track_name, artists, query, video_id
		FROM resolutions
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions models.Resolutions
	for rows.Next() {
		var (
			res     models.Resolution
			trackID sql.NullString
			artists string
			videoID sql.NullString
		)
		if err := rows.Scan(&res.Position, &trackID, &res.Track.Name, &artists, &res.Query, &videoID); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		if err := json.Unmarshal([]byte(artists), &res.Track.Artists); err != nil {
			return nil, fmt.Errorf("failed to decode artists: %w", err)
		}
		res.Track.ID = trackID.String
		res.VideoID = videoID.String
		res.Found = videoID.Valid
		resolutions = append(resolutions, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return resolutions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row from [sql.Row] or [sql.Rows] into a [models.Run]
func scanRun(row scanner) (*models.Run, error) {
	var (
		id             string
		sequence       int
		source         string
		dest           sql.NullString
		stage          string
		status         string
		tracksTotal    int
		tracksResolved int
		itemsInserted  int
		dryRun         bool
		errorMessage   sql.NullString
		startedAt      time.Time
		completedAt    sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&id, &sequence, &source, &dest, &stage, &status, &tracksTotal, &tracksResolved,
		&itemsInserted, &dryRun, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	st, err := models.ParseStage(stage)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run %s: %w", id, err)
	}

	run := models.RestoreRun(id, createdAt, updatedAt)
	run.Sequence = sequence
	run.SourcePlaylistID = source
	run.DestPlaylistID = dest.String
	run.Stage = st
	run.Status = models.RunStatus(status)
	run.TracksTotal = tracksTotal
	run.TracksResolved = tracksResolved
	run.ItemsInserted = itemsInserted
	run.DryRun = dryRun
	run.ErrorMessage = errorMessage.String
	run.StartedAt = startedAt
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}

	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)
