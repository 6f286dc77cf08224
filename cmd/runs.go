package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/sp2yt/internal/formatter"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/repositories"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

const timeLayout = "2006-01-02 15:04"

// RunsList prints recorded runs as a table, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	repo, db, err := r.requireLedger(config)
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{
		"status":             cmd.String("status"),
		"source_playlist_id": cmd.String("source"),
		"limit":              int(cmd.Int("limit")),
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded.\n")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			strconv.Itoa(run.Sequence),
			run.SourcePlaylistID,
			orDash(run.DestPlaylistID),
			run.Stage.String(),
			string(run.Status),
			fmt.Sprintf("%d/%d", run.TracksResolved, run.TracksTotal),
			strconv.Itoa(run.ItemsInserted),
			run.StartedAt.Local().Format(timeLayout),
			run.Duration(time.Now()).Round(time.Second).String(),
		})
	}

	headers := []string{"#", "Source", "Playlist", "Stage", "Status", "Matched", "Added", "Started", "Duration"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight}
	r.writePlain("%s\n", renderTable(headers, rows, aligns))
	return nil
}

// RunsShow prints one run and the video each track resolved to.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	repo, db, err := r.requireLedger(config)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := findRun(repo, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	resolutions, err := repo.Resolutions(run.ID())
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d", run.Sequence))
	r.writePlain("ID: %s\n", run.ID())
	r.writePlain("Source: %s\n", run.SourcePlaylistID)
	if run.DestPlaylistID != "" {
		r.writePlain("Playlist ID: %s\n", run.DestPlaylistID)
	}
	r.writePlain("Status: %s (stage %s)\n", run.Status, run.Stage)
	if run.DryRun {
		r.writePlain("Dry run: yes\n")
	}
	r.writePlain("Matched: %d/%d, added: %d\n", run.TracksResolved, run.TracksTotal, run.ItemsInserted)
	r.writePlain("Started: %s\n", run.StartedAt.Local().Format(timeLayout))
	if run.CompletedAt != nil {
		r.writePlain("Duration: %s\n", run.Duration(time.Now()).Round(time.Millisecond))
	}
	if run.ErrorMessage != "" {
		r.writePlain("Error: %s\n", run.ErrorMessage)
	}

	if len(resolutions) > 0 {
		rows := make([][]string, 0, len(resolutions))
		for _, res := range resolutions {
			rows = append(rows, []string{strconv.Itoa(res.Position + 1), res.Track.Display(), orDash(res.VideoID)})
		}
		r.writePlain("\n%s\n", renderTable([]string{"#", "Track", "Video"}, rows, []columnAlignment{alignRight}))
	}

	if path := cmd.String("report"); path != "" {
		var format formatter.Format
		if f := cmd.String("report-format"); f != "" {
			if format, err = formatter.ParseFormat(f); err != nil {
				return err
			}
		}

		report := &formatter.Report{Run: run, Resolutions: resolutions}
		if run.DestPlaylistID != "" {
			report.Playlist = &models.PlaylistResult{ID: run.DestPlaylistID, Inserted: run.ItemsInserted}
		}
		if err := formatter.WriteReport(report, path, format); err != nil {
			return err
		}
		r.writePlain("Report written to %s\n", path)
	}
	return nil
}

// RunsDelete removes a run and its per-track results.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	repo, db, err := r.requireLedger(config)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := findRun(repo, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := repo.Delete(run.ID()); err != nil {
		return err
	}

	r.writePlain("✓ Deleted run #%d (%s)\n", run.Sequence, run.ID())
	return nil
}

// findRun looks a run up by sequence number or ID.
func findRun(repo *repositories.RunRepository, ref string) (*models.Run, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: run id or number", shared.ErrMissingArgument)
	}

	if seq, err := strconv.Atoi(ref); err == nil {
		run, err := repo.GetBySequence(seq)
		if err == nil || !errors.Is(err, shared.ErrRunNotFound) {
			return run, err
		}
	}

	run, err := repo.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}
	return run, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
