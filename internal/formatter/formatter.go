// package formatter renders transfer reports (which track resolved to which video) as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
)

const watchURL = "https://www.youtube.com/watch?v="

// Format names a report encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or one of its usual file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatFromPath infers the format from the file extension, defaulting to plain text.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return FormatText
}

// Report is everything known about one run: the ledger row, the per-track outcomes, and the playlists on each side when available.
type Report struct {
	Run         *models.Run            `json:"-"`
	Source      *models.SourcePlaylist `json:"source,omitempty"`
	Playlist    *models.PlaylistResult `json:"playlist,omitempty"`
	Resolutions models.Resolutions     `json:"resolutions"`
}

func (r *Report) title() string {
	if r.Source != nil && r.Source.Name != "" {
		return r.Source.Name
	}
	if r.Run != nil {
		return r.Run.SourcePlaylistID
	}
	return "Transfer"
}

func videoURL(res models.Resolution) string {
	if !res.Found {
		return ""
	}
	return watchURL + res.VideoID
}

// ExportToCSV writes one row per source track with columns: Position, Track, Artists, Query, Video ID, URL
//
// Unresolved tracks keep their row with empty video columns.
func ExportToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Track", "Artists", "Query", "Video ID", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, res := range report.Resolutions {
		record := []string{
			strconv.Itoa(res.Position + 1),
			res.Track.Name,
			strings.Join(res.Track.Artists, ", "),
			res.Query,
			res.VideoID,
			videoURL(res),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a summary followed by the matched and unmatched tracks.
func ExportToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	res := report.Resolutions

	fmt.Fprintf(&buf, "# %s\n\n", report.title())

	if report.Run != nil {
		fmt.Fprintf(&buf, "**Run**: #%d (%s)\n", report.Run.Sequence, report.Run.Status)
		fmt.Fprintf(&buf, "**Stage**: %s\n", report.Run.Stage)
		if report.Run.DryRun {
			buf.WriteString("**Dry run**: yes\n")
		}
	}
	if report.Playlist != nil {
		fmt.Fprintf(&buf, "**Playlist**: [%s](https://www.youtube.com/playlist?list=%s) (%s)\n",
			report.Playlist.Title, report.Playlist.ID, report.Playlist.Privacy)
	}
	fmt.Fprintf(&buf, "**Matched**: %d of %d\n\n", res.FoundCount(), len(res))

	buf.WriteString("## Tracks\n\n")
	for _, r := range res {
		if r.Found {
			fmt.Fprintf(&buf, "%d. %s → [%s](%s)\n", r.Position+1, r.Track.Display(), r.VideoID, videoURL(r))
		} else {
			fmt.Fprintf(&buf, "%d. %s → _no match_\n", r.Position+1, r.Track.Display())
		}
	}

	if misses := res.Misses(); len(misses) > 0 {
		buf.WriteString("\n## Unmatched\n\n")
		for _, r := range misses {
			fmt.Fprintf(&buf, "- `%s`\n", r.Query)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders the report as plain text
func ExportToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	res := report.Resolutions

	fmt.Fprintf(&buf, "Source: %s\n", report.title())
	if report.Playlist != nil {
		fmt.Fprintf(&buf, "Playlist ID: %s\n", report.Playlist.ID)
	}
	fmt.Fprintf(&buf, "Matched: %d/%d\n\n", res.FoundCount(), len(res))

	for _, r := range res {
		video := "-"
		if r.Found {
			video = r.VideoID
		}
		fmt.Fprintf(&buf, "%d. %s [%s]\n", r.Position+1, r.Track.Display(), video)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the report as indented JSON.
func ExportToJSON(report *Report) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}

// Export renders report in the given format.
func Export(report *Report, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(report)
	case FormatMarkdown:
		return ExportToMarkdown(report)
	case FormatText:
		return ExportToText(report)
	case FormatJSON:
		return ExportToJSON(report)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteReport writes report to path. An empty format is inferred from the file extension.
func WriteReport(report *Report, path string, format Format) error {
	if path == "" {
		return fmt.Errorf("%w: report path", shared.ErrMissingArgument)
	}
	if format == "" {
		format = FormatFromPath(path)
	}

	data, err := Export(report, format)
	if err != nil {
		return fmt.Errorf("failed to generate %s report: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
