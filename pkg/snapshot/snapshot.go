// Package snapshot gathers the process table and every process mapping into
// one immutable picture before any computation runs.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/srodi/ures/pkg/types"
	"github.com/srodi/ures/pkg/ures"
)

// Reader is the process-table and mapping source a snapshot is built from.
type Reader interface {
	ListLiveProcesses(ctx context.Context) ([]types.Process, error)
	ReadMappings(ctx context.Context, pid int) ([]types.MappingRecord, error)
}

// Options tunes collection.
type Options struct {
	// Workers bounds concurrent mapping reads; <= 0 means runtime.NumCPU().
	Workers int
	// CPUOverrides replaces the last-CPU value of the listed PIDs.
	CPUOverrides map[int]int
	Logger       *zap.Logger
}

// Snapshot is the complete input of one report.
type Snapshot struct {
	Processes  []types.Process
	Mappings   map[int][]types.MappingRecord
	Vanished   int
	Unreadable int
}

type fetchResult struct {
	records    []types.MappingRecord
	vanished   bool
	unreadable bool
}

// Collect lists live processes and reads their mappings in parallel. It
// returns only after every read finished, so the snapshot is complete.
// Processes that exit before their mappings are read are dropped; processes
// whose mappings may not be read stay in with no mappings.
func Collect(ctx context.Context, r Reader, opts Options) (Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	procs, err := r.ListLiveProcesses(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("enumerating processes: %w", err)
	}
	if len(procs) == 0 {
		return Snapshot{}, ures.ErrNoData
	}

	results := make([]fetchResult, len(procs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range procs {
		i := i
		pid := procs[i].PID
		g.Go(func() error {
			records, err := r.ReadMappings(gctx, pid)
			switch {
			case err == nil:
				results[i].records = records
			case errors.Is(err, ures.ErrProcessVanished):
				results[i].vanished = true
			case errors.Is(err, fs.ErrPermission):
				results[i].unreadable = true
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				logger.Debug("reading mappings failed", zap.Int("pid", pid), zap.Error(err))
				results[i].unreadable = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Processes: make([]types.Process, 0, len(procs)),
		Mappings:  make(map[int][]types.MappingRecord, len(procs)),
	}
	for i, proc := range procs {
		res := results[i]
		if res.vanished {
			snap.Vanished++
			continue
		}
		if res.unreadable {
			snap.Unreadable++
		}
		if cpu, ok := opts.CPUOverrides[proc.PID]; ok {
			proc.LastCPU = &cpu
		}
		snap.Processes = append(snap.Processes, proc)
		snap.Mappings[proc.PID] = res.records
	}

	if snap.Vanished > 0 {
		logger.Debug("processes exited during collection", zap.Int("count", snap.Vanished))
	}
	if snap.Unreadable > 0 {
		logger.Warn("mappings unreadable, counted as zero; run as root for full coverage",
			zap.Int("count", snap.Unreadable))
	}
	if len(snap.Processes) == 0 {
		return Snapshot{}, ures.ErrNoData
	}
	return snap, nil
}
