package formatter

import (
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	th "github.com/desertthunder/sp2yt/internal/testing"
)

func sampleReport() *Report {
	run := models.NewRun("37i9dQZF1DXcBWIGoYBM5M", false)
	run.Sequence = 7
	run.TracksTotal = 2
	run.TracksResolved = 1
	run.ItemsInserted = 1
	run.Advance(models.Done)
	run.Complete(nil)

	return &Report{
		Run:    run,
		Source: &models.SourcePlaylist{ID: run.SourcePlaylistID, Name: "Road Trip"},
		Playlist: &models.PlaylistResult{
			ID:       "PL123",
			Title:    "Test Playlist",
			Privacy:  "public",
			Inserted: 1,
		},
		Resolutions: models.Resolutions{
			{
				Position: 0,
				Track:    models.TrackDescriptor{Name: "Song A", Artists: []string{"Artist X"}},
				Query:    "Song A by Artist X",
				VideoID:  "v1",
				Found:    true,
			},
			{
				Position: 1,
				Track:    models.TrackDescriptor{Name: "Song B", Artists: []string{"Artist Y", "Artist Z"}},
				Query:    "Song B by Artist Y, Artist Z",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: ".CSV", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "txt", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("FormatFromPath", func(t *testing.T) {
		cases := map[string]Format{
			"out/report.csv": FormatCSV,
			"report.md":      FormatMarkdown,
			"report.json":    FormatJSON,
			"report":         FormatText,
			"report.log":     FormatText,
		}
		for path, want := range cases {
			if got := FormatFromPath(path); got != want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
			}
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleReport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d records", len(records))
		}
		if strings.Join(records[0], ",") != "Position,Track,Artists,Query,Video ID,URL" {
			t.Errorf("unexpected headers: %v", records[0])
		}
		if records[1][0] != "1" || records[1][4] != "v1" || records[1][5] != "https://www.youtube.com/watch?v=v1" {
			t.Errorf("unexpected matched row: %v", records[1])
		}
		if records[2][2] != "Artist Y, Artist Z" {
			t.Errorf("artists should keep order, got %q", records[2][2])
		}
		if records[2][4] != "" || records[2][5] != "" {
			t.Errorf("unmatched row should have empty video columns: %v", records[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleReport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Road Trip",
			"**Run**: #7 (succeeded)",
			"**Stage**: done",
			"list=PL123",
			"**Matched**: 1 of 2",
			"1. Song A by Artist X → [v1](https://www.youtube.com/watch?v=v1)",
			"2. Song B by Artist Y, Artist Z → _no match_",
			"## Unmatched",
			"- `Song B by Artist Y, Artist Z`",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown without misses", func(t *testing.T) {
		report := sampleReport()
		report.Resolutions = report.Resolutions[:1]
		report.Source = nil

		data, err := ExportToMarkdown(report)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if strings.Contains(output, "Unmatched") {
			t.Error("Markdown should omit the unmatched section")
		}
		if !strings.Contains(output, "# 37i9dQZF1DXcBWIGoYBM5M") {
			t.Error("Markdown should fall back to the source id as title")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleReport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"Source: Road Trip",
			"Playlist ID: PL123",
			"Matched: 1/2",
			"1. Song A by Artist X [v1]",
			"2. Song B by Artist Y, Artist Z [-]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleReport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, `"video_id": "v1"`) {
			t.Errorf("JSON missing video id, got:\n%s", output)
		}
		if !strings.Contains(output, `"found": false`) {
			t.Errorf("JSON missing unmatched entry, got:\n%s", output)
		}
	})

	t.Run("Export rejects unknown formats", func(t *testing.T) {
		if _, err := Export(sampleReport(), Format("yaml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteReport(t *testing.T) {
	t.Run("infers format from extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "run.csv")

		if err := WriteReport(sampleReport(), path, ""); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "Position,Track") {
			t.Errorf("expected CSV content, got:\n%s", content)
		}
	})

	t.Run("explicit format wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.csv")

		if err := WriteReport(sampleReport(), path, FormatMarkdown); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}

		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Road Trip") {
			t.Errorf("expected Markdown content, got:\n%s", content)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		if err := WriteReport(sampleReport(), "", FormatText); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
