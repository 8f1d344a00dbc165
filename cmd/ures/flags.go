package main

import (
	"github.com/urfave/cli/v2"

	"github.com/srodi/ures/pkg/config"
	"github.com/srodi/ures/pkg/report"
	"github.com/srodi/ures/pkg/types"
)

const (
	flagConfig        = "config"
	flagDebug         = "debug"
	flagProcRoot      = "proc-root"
	flagWorkers       = "workers"
	flagTopK          = "topk"
	flagHideKernel    = "hide-kernel"
	flagUser          = "user"
	flagCommand       = "command"
	flagHuman         = "human"
	flagRestThreshold = "rest-threshold"
	flagHeaderEvery   = "header-every"
	flagCPUTrace      = "cpu-trace"
	flagReports       = "reports"
	flagNoBanner      = "no-banner"
)

func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load settings from YAML `FILE`; flags override it",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
		&cli.StringFlag{
			Name:  flagProcRoot,
			Value: "/proc",
			Usage: "procfs mount point to read",
		},
		&cli.IntFlag{
			Name:  flagWorkers,
			Usage: "concurrent mapping readers (0 = one per CPU)",
		},
		&cli.IntFlag{
			Name:    flagTopK,
			Aliases: []string{"n"},
			Usage:   "process rows to print (0 = all)",
		},
		&cli.BoolFlag{
			Name:  flagHideKernel,
			Value: true,
			Usage: "hide kernel threads such as kworker, ksoftirqd, etc",
		},
		&cli.StringFlag{
			Name:    flagUser,
			Aliases: []string{"u"},
			Usage:   "only show processes whose user contains this substring (case-insensitive)",
		},
		&cli.StringFlag{
			Name:  flagCommand,
			Usage: "only show processes whose command contains this substring (case-insensitive)",
		},
		&cli.BoolFlag{
			Name:    flagHuman,
			Aliases: []string{"H"},
			Usage:   "print sizes in human readable units",
		},
		&cli.Uint64Flag{
			Name:  flagRestThreshold,
			Value: report.DefaultRestThreshold,
			Usage: "commands below this many URES bytes are folded into a Rest row",
		},
		&cli.IntFlag{
			Name:  flagHeaderEvery,
			Value: types.DefaultHeaderEvery,
			Usage: "repeat the process table header every N rows (0 = never)",
		},
		&cli.DurationFlag{
			Name:  flagCPUTrace,
			Usage: "trace scheduler switches for this long to refresh last-CPU data (e.g. 500ms; needs root)",
		},
		&cli.StringSliceFlag{
			Name:    flagReports,
			Aliases: []string{"r"},
			Usage:   "reports to print: processes, users, commands, cpus",
		},
		&cli.BoolFlag{
			Name:  flagNoBanner,
			Usage: "do not print the banner",
		},
	}
}

// configFromContext loads the config file, if any, and applies every flag the
// user set explicitly on top of it.
func configFromContext(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet(flagProcRoot) {
		cfg.ProcRoot = c.String(flagProcRoot)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagTopK) {
		cfg.TopK = c.Int(flagTopK)
	}
	if c.IsSet(flagHideKernel) {
		cfg.HideKernel = c.Bool(flagHideKernel)
	}
	if c.IsSet(flagUser) {
		cfg.UserFilter = c.String(flagUser)
	}
	if c.IsSet(flagCommand) {
		cfg.CommandFilter = c.String(flagCommand)
	}
	if c.IsSet(flagHuman) {
		cfg.Human = c.Bool(flagHuman)
	}
	if c.IsSet(flagRestThreshold) {
		cfg.RestThresholdBytes = c.Uint64(flagRestThreshold)
	}
	if c.IsSet(flagHeaderEvery) {
		cfg.HeaderEvery = c.Int(flagHeaderEvery)
	}
	if c.IsSet(flagCPUTrace) {
		cfg.CPUTrace = c.Duration(flagCPUTrace)
	}
	if c.IsSet(flagReports) {
		cfg.Reports = c.StringSlice(flagReports)
	}
	if c.Bool(flagDebug) {
		cfg.LogLevel = "debug"
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}
