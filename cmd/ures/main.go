package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/srodi/ures/pkg/collector/cpu"
	"github.com/srodi/ures/pkg/collector/memory"
	"github.com/srodi/ures/pkg/config"
	"github.com/srodi/ures/pkg/logging"
	"github.com/srodi/ures/pkg/report"
	"github.com/srodi/ures/pkg/snapshot"
	"github.com/srodi/ures/pkg/types"
	"github.com/srodi/ures/pkg/ui"
	"github.com/srodi/ures/pkg/ures"
)

// runner holds the collaborators of one report run. Tests swap them out.
type runner struct {
	out          io.Writer
	color        bool
	logger       *zap.Logger
	cfg          config.Config
	newReader    func(root string) (snapshot.Reader, error)
	trace        func(ctx context.Context, window time.Duration) (map[int]int, error)
	systemMemory func(ctx context.Context) (types.SystemMemory, error)
	now          func() time.Time
}

func newRunner(out io.Writer) *runner {
	return &runner{
		out:   out,
		color: isTerminal(out),
		newReader: func(root string) (snapshot.Reader, error) {
			return memory.NewReader(root)
		},
		trace:        cpu.Trace,
		systemMemory: memory.SystemMemory,
		now:          time.Now,
	}
}

func newApp(r *runner) *cli.App {
	return &cli.App{
		Name:      "ures",
		Usage:     "report memory used by each process as unique resident set size",
		Writer:    r.out,
		Flags:     appFlags(),
		ErrWriter: os.Stderr,
		Before: func(c *cli.Context) error {
			cfg, err := configFromContext(c)
			if err != nil {
				return err
			}
			r.cfg = cfg
			if r.logger == nil {
				logger, err := logging.New("ures", cfg.LogLevel, term.IsTerminal(int(os.Stderr.Fd())))
				if err != nil {
					return err
				}
				r.logger = logger
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if r.logger != nil {
				_ = r.logger.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return fmt.Errorf("unexpected arguments: %v", c.Args().Slice())
			}
			showBanner := r.color && !c.Bool(flagNoBanner)
			return r.run(c.Context, showBanner)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(newRunner(os.Stdout)).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ures: %v\n", err)
		os.Exit(1)
	}
}

// run takes one snapshot of the system and prints the selected reports.
func (r *runner) run(ctx context.Context, showBanner bool) error {
	cfg := r.cfg
	logger := r.logger

	overrides := r.lastCPUs(ctx)

	reader, err := r.newReader(cfg.ProcRoot)
	if err != nil {
		return fmt.Errorf("initializing mapping reader: %w", err)
	}
	snap, err := snapshot.Collect(ctx, reader, snapshot.Options{
		Workers:      cfg.Workers,
		CPUOverrides: overrides,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("collecting snapshot: %w", err)
	}
	logger.Debug("snapshot collected",
		zap.Int("processes", len(snap.Processes)),
		zap.Int("vanished", snap.Vanished),
		zap.Int("unreadable", snap.Unreadable))

	profiles, err := ures.ComputeProfiles(snap.Processes, snap.Mappings)
	if errors.Is(err, ures.ErrNoData) {
		return err
	}
	if errs := multierr.Errors(err); len(errs) > 0 {
		logger.Warn("skipped invalid mapping records", zap.Int("count", len(errs)))
		for _, e := range errs {
			logger.Debug("invalid mapping record", zap.Error(e))
		}
	}

	reports, err := report.BuildReports(profiles, report.ViewConfig{
		Filter:             cfg.Filter(),
		TopK:               cfg.TopK,
		RestThresholdBytes: cfg.RestThresholdBytes,
	})
	if err != nil {
		return fmt.Errorf("no processes matched the current filters (user=%q, command=%q, hide-kernel=%t): %w",
			cfg.UserFilter, cfg.CommandFilter, cfg.HideKernel, err)
	}

	renderCfg := report.RenderConfig{
		Sections:    cfg.Reports,
		Human:       cfg.Human,
		HeaderEvery: cfg.HeaderEvery,
		Color:       r.color,
		Now:         r.now(),
	}
	if sys, err := r.systemMemory(ctx); err != nil {
		logger.Warn("system memory unavailable", zap.Error(err))
	} else {
		renderCfg.System = &sys
	}

	if showBanner {
		fmt.Fprintln(r.out, ui.Banner())
	}
	return report.Render(r.out, reports, renderCfg)
}

// lastCPUs optionally traces the scheduler to refresh each process's last
// CPU. Any failure only costs the fresher data, so it is logged and ignored.
func (r *runner) lastCPUs(ctx context.Context) map[int]int {
	if r.cfg.CPUTrace <= 0 {
		return nil
	}
	if err := raiseMemlock(); err != nil {
		r.logger.Warn("failed to raise rlimit memlock", zap.Error(err))
	}
	overrides, err := r.trace(ctx, r.cfg.CPUTrace)
	if err != nil {
		r.logger.Warn("cpu trace unavailable, using /proc stat data", zap.Error(err))
		return nil
	}
	r.logger.Debug("cpu trace finished", zap.Int("tasks", len(overrides)), zap.Duration("window", r.cfg.CPUTrace))
	return overrides
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
