package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

// YouTubeSearch runs a single video search, as the transfer does for each track.
func (r *Runner) YouTubeSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	youtube := r.youtubeService(config, r.logger)

	videoID, found, err := youtube.Search(ctx, query)
	if err != nil {
		return err
	}

	if !found {
		r.writePlain("No video found for query: %s\n", query)
		return nil
	}

	r.writePlain("Video ID: %s\n", videoID)
	r.writePlain("URL: https://www.youtube.com/watch?v=%s\n", videoID)
	return nil
}

// YouTubeAuth runs the browser consent flow and caches the token at youtube.token_path.
func (r *Runner) YouTubeAuth(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	flow, err := r.installedFlow(config, r.logger)
	if err != nil {
		return err
	}

	tokenPath := config.Credentials.YouTube.TokenPath
	if tokenPath == "" {
		r.logger.Warn("youtube.token_path is empty; the token will not be cached")
	}

	ts, err := flow.Authorize(ctx)
	if err != nil {
		return err
	}

	token, err := ts.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	r.writePlain("✓ YouTube authorization complete\n")
	if !token.Expiry.IsZero() {
		r.writePlain("Token expires: %s\n", token.Expiry.Local().Format("2006-01-02 15:04:05"))
	}
	if tokenPath != "" {
		r.writePlain("Token cached at: %s\n", tokenPath)
	}
	return nil
}
