package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wrapped/internal/formatter"
	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Stats authorizes through the local callback server and prints the stats.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}
	// Validate output flags before sending the user to the browser.
	if _, err := formatter.ParseFormat(cmd.String("format")); err != nil {
		return err
	}
	if _, err := models.ParseTimeRange(cmd.String("time-range")); err != nil {
		return err
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	token, err := r.authorize(ctx, engine, cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	return r.printStats(ctx, cmd, engine, token)
}

// printStats fetches with token and writes the result in the requested format to --output or stdout.
func (r *Runner) printStats(ctx context.Context, cmd *cli.Command, engine tasks.Engine, token string) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	timeRange, err := models.ParseTimeRange(cmd.String("time-range"))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Err != nil {
				r.logger.Warn(update.Message, "phase", update.Phase, "error", update.Err)
				continue
			}
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	wrapped, err := engine.Fetch(ctx, token, timeRange, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	for _, fe := range wrapped.Errors {
		r.writePrompt("⚠ Could not load %s: %v\n", fe.Step, fe.Err)
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(wrapped, format, path)
		if err != nil {
			return err
		}
		r.writePrompt("✓ Stats written to %s\n", written)
		return nil
	}

	data, err := formatter.Export(wrapped, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
