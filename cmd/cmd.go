// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// transferCommand runs the Spotify → YouTube pipeline
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer a Spotify playlist to YouTube",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Read the playlist, search YouTube for every track, create the playlist and add the videos",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Spotify playlist ID (overrides source.playlist_id)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title of the new YouTube playlist",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Description of the new YouTube playlist",
					},
					&cli.StringFlag{
						Name:  "privacy",
						Usage: "Privacy of the new playlist: public, private or unlisted",
					},
					&cli.BoolFlag{
						Name:  "title-from-source",
						Usage: "Copy the title and description of the Spotify playlist",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Stop after searching; nothing is written to YouTube",
					},
					&cli.BoolFlag{
						Name:  "all-pages",
						Usage: "Read every page of the Spotify playlist instead of the first",
					},
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "Write a report of the matched tracks to this file",
					},
					&cli.StringFlag{
						Name:  "report-format",
						Usage: "Report format: csv, markdown, text or json (default: from the file extension)",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show progress in an interactive terminal UI",
					},
				},
				Action: r.TransferRun,
			},
		},
	}
}

// sourceCommand handles read-only Spotify operations
func sourceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "source",
		Aliases: []string{"spotify", "sp"},
		Usage:   "Inspect the Spotify source playlist",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "List the tracks as they will be searched on YouTube",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Spotify playlist ID (overrides source.playlist_id)",
					},
					&cli.BoolFlag{
						Name:  "all-pages",
						Usage: "Read every page of the playlist",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SourceTracks,
			},
			{
				Name:  "info",
				Usage: "Show playlist metadata",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Spotify playlist ID (overrides source.playlist_id)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SourceInfo,
			},
		},
	}
}

// youtubeCommand handles single YouTube operations
func youtubeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "youtube",
		Aliases: []string{"yt"},
		Usage:   "YouTube search and authorization",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search for the first video matching a query",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Action: r.YouTubeSearch,
			},
			{
				Name:   "auth",
				Usage:  "Authorize playlist writes in the browser and cache the token",
				Action: r.YouTubeAuth,
			},
		},
	}
}

// runsCommand reads the run ledger
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded transfer runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status: running, succeeded or failed",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Only runs of this Spotify playlist",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
				},
				Action: r.RunsList,
			},
			{
				Name:  "show",
				Usage: "Show a run and its per-track results",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "Also write a report to this file",
					},
					&cli.StringFlag{
						Name:  "report-format",
						Usage: "Report format: csv, markdown, text or json",
					},
				},
				Action: r.RunsShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a run and its results",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.RunsDelete,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml at the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the run ledger and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Database file (overrides database.path)",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
