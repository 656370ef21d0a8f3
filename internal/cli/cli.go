// Package cli runs a load test end to end: probe, measured phase, report.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"crudload/internal/export"
	"crudload/internal/report"
	"crudload/internal/runner"
	"crudload/internal/storage"
	"crudload/internal/tui"
)

type Options struct {
	Out    io.Writer
	Logger zerolog.Logger

	// TUI replaces the progress line with the live dashboard.
	TUI bool
	// OutPrefix enables file export when set.
	OutPrefix string
	// History receives a record of every finished run. May be nil.
	History *storage.Store
}

// Start runs one load test. A cancelled ctx during the measured phase ends
// the run early and still produces the report; the returned error is nil in
// that case.
func Start(ctx context.Context, cfg runner.Config, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	log := opts.Logger
	printer := report.NewPrinter(opts.Out)

	printer.Header(cfg)

	updates := make(runner.ProgressChan, 100)
	r, err := runner.NewRunner(cfg, updates, log)
	if err != nil {
		return err
	}

	log.Debug().Str("target", cfg.TargetString()).Msg("probing target")
	if err := r.Probe(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("interrupted before the measured phase")
			return nil
		}
		return fmt.Errorf("probe %s: %w", cfg.TargetString(), err)
	}

	var res runner.Result
	if opts.TUI {
		res, err = tui.Run(ctx, r)
		if err != nil {
			return err
		}
	} else {
		res = runWithProgress(ctx, r, printer)
	}

	printer.Summary(cfg, res)
	if res.Interrupted {
		log.Info().Uint64("requests", res.Snapshot.Requests).Msg("run interrupted")
	}

	handleAutoReport(opts, cfg, res)
	saveHistory(opts, cfg, res)
	return nil
}

// runWithProgress prints the progress line until the runner closes its
// update channel.
func runWithProgress(ctx context.Context, r *runner.Runner, printer *report.Printer) runner.Result {
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for p := range r.Updates {
			printer.Progress(p, r.Cfg.Duration)
		}
	}()

	res := r.Run(ctx)
	<-printed
	return res
}

func handleAutoReport(opts Options, cfg runner.Config, res runner.Result) {
	if opts.OutPrefix == "" {
		return
	}

	paths, err := export.Files(opts.OutPrefix, cfg, res)
	if err != nil {
		opts.Logger.Error().Err(err).Str("prefix", opts.OutPrefix).Msg("export failed")
		return
	}
	for _, p := range paths {
		fmt.Fprintf(opts.Out, "💾 Saved %s\n", p)
	}
}

func saveHistory(opts Options, cfg runner.Config, res runner.Result) {
	if opts.History == nil {
		return
	}

	rec, err := storage.NewRecord(export.NewSummary(cfg, res))
	if err == nil {
		err = opts.History.Save(rec)
	}
	if err != nil {
		opts.Logger.Warn().Err(err).Msg("could not save run history")
		return
	}
	opts.Logger.Debug().Str("id", rec.ID).Str("path", opts.History.Path()).Msg("run saved to history")
}
