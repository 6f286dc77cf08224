package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
	"github.com/desertthunder/sp2yt/internal/ui"
)

const tuiLogPath = "./tmp/sp2yt-tui.log"

// tuiLogger redirects logs to a file so they do not interfere with TUI rendering.
func (r *Runner) tuiLogger() (*log.Logger, func(), error) {
	logger, f, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	logger.SetLevel(r.logger.GetLevel())
	return logger, func() { f.Close() }, nil
}

// transferTUI runs the pipeline under the terminal UI. Consent prompts are shown inside it.
func (r *Runner) transferTUI(ctx context.Context, pipeline *tasks.Pipeline, opts tasks.Options, flow *services.InstalledFlow) (*tasks.TransferResult, error) {
	program := ui.NewProgram(ctx, pipeline, opts)
	if flow != nil {
		flow.Prompt = program.Prompt
	}
	return program.Run()
}
