// Package ures turns per-mapping sharing data into unique resident set sizes
// and folds the results into per-user, per-command and per-CPU groups.
//
// A mapping shared by k processes contributes size/k to the URES of each of
// them, so summing URES across all processes never double-counts a page. The
// share counts are trusted as given: a count that is stale because a sharer
// exited while the snapshot was taken skews the result for that snapshot only.
package ures

import (
	"math"

	"go.uber.org/multierr"

	"github.com/srodi/ures/pkg/types"
)

// ComputeProfiles builds one profile per process from its mapping records.
//
// Invalid records are skipped and the rest of the snapshot is still computed:
// in that case the profiles are returned together with a non-nil error that
// combines one *InvalidRecordError per skipped record. ErrNoData is returned
// with nil profiles when procs is empty.
func ComputeProfiles(procs []types.Process, mappings map[int][]types.MappingRecord) ([]types.ProcessMemoryProfile, error) {
	if len(procs) == 0 {
		return nil, ErrNoData
	}

	var errs error
	known := make(map[int]struct{}, len(procs))
	profiles := make([]types.ProcessMemoryProfile, 0, len(procs))
	for _, proc := range procs {
		known[proc.PID] = struct{}{}
		profile, err := computeProfile(proc, mappings[proc.PID])
		errs = multierr.Append(errs, err)
		profiles = append(profiles, profile)
	}

	for pid, records := range mappings {
		if _, ok := known[pid]; ok {
			continue
		}
		for i, rec := range records {
			errs = multierr.Append(errs, &InvalidRecordError{PID: pid, Index: i, Reason: "no process metadata", Record: rec})
		}
	}

	return profiles, errs
}

func computeProfile(proc types.Process, records []types.MappingRecord) (types.ProcessMemoryProfile, error) {
	var (
		errs error
		rss  uint64
		sum  accumulator
		used int
	)
	for i, rec := range records {
		if reason := validate(proc.PID, rec); reason != "" {
			errs = multierr.Append(errs, &InvalidRecordError{PID: proc.PID, Index: i, Reason: reason, Record: rec})
			continue
		}
		rss += rec.SizeBytes
		sum.add(Contribution(rec))
		used++
	}
	return types.ProcessMemoryProfile{
		Process:       proc,
		TotalRSSBytes: rss,
		URESBytes:     roundBytes(sum.value()),
		Mappings:      used,
	}, errs
}

// Contribution is the real-valued URES share of a single valid record.
func Contribution(rec types.MappingRecord) float64 {
	if rec.ShareCount <= 1 {
		return float64(rec.SizeBytes)
	}
	return float64(rec.SizeBytes) / float64(rec.ShareCount)
}

func validate(pid int, rec types.MappingRecord) string {
	switch {
	case rec.PID <= 0:
		return "missing pid"
	case rec.PID != pid:
		return "pid does not match owning process"
	case rec.ShareCount == 0:
		return "missing share count"
	}
	return ""
}

func roundBytes(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(math.Round(v))
}

// accumulator is a Neumaier compensated sum.
type accumulator struct {
	sum, c float64
}

func (a *accumulator) add(v float64) {
	t := a.sum + v
	if math.Abs(a.sum) >= math.Abs(v) {
		a.c += (a.sum - t) + v
	} else {
		a.c += (v - t) + a.sum
	}
	a.sum = t
}

func (a *accumulator) value() float64 {
	return a.sum + a.c
}
