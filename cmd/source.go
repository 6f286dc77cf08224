package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// spotifyPageSize is the default page size of the playlist tracks endpoint.
const spotifyPageSize = 100

// SourceTracks prints the display string of every track, exactly as it will be searched on YouTube.
func (r *Runner) SourceTracks(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	id, err := playlistID(cmd, config)
	if err != nil {
		return err
	}
	if cmd.Bool("all-pages") {
		config.Source.Paginate = true
	}
	if err := config.Credentials.Spotify.Validate(); err != nil {
		return err
	}

	spotify := r.spotifyService(config, r.logger)

	token, err := spotify.FetchToken(ctx)
	if err != nil {
		return err
	}

	tracks, err := spotify.ReadPlaylist(ctx, token, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader(fmt.Sprintf("Playlist %s (%d tracks)", id, len(tracks)))
	for i, track := range tracks {
		r.writePlain("%d. %s\n", i+1, track.Display())
	}
	return nil
}

// SourceInfo prints the playlist's metadata.
func (r *Runner) SourceInfo(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	id, err := playlistID(cmd, config)
	if err != nil {
		return err
	}
	if err := config.Credentials.Spotify.Validate(); err != nil {
		return err
	}

	spotify := r.spotifyService(config, r.logger)

	token, err := spotify.FetchToken(ctx)
	if err != nil {
		return err
	}

	info, err := spotify.PlaylistInfo(ctx, token, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}

	visibility := "Private"
	if info.Public {
		visibility = "Public"
	}

	r.writePlainHeader(info.Name)
	r.writePlain("ID: %s\n", info.ID)
	if info.Description != "" {
		r.writePlain("Description: %s\n", info.Description)
	}
	r.writePlain("Owner: %s\n", info.Owner)
	r.writePlain("Tracks: %d\n", info.TrackCount)
	r.writePlain("Visibility: %s\n", visibility)

	if info.TrackCount > 100 && !config.Source.Paginate {
		r.writePlainln("Note: transfers read only the first %d tracks unless --all-pages or source.paginate is set", spotifyPageSize)
	}
	return nil
}
