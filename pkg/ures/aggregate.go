package ures

import (
	"fmt"
	"strconv"

	"github.com/srodi/ures/pkg/types"
)

// AggregateBy folds profiles into one summary per grouping value. Sums are
// integer so the result does not depend on the order of profiles. For ByCPU,
// profiles without a last-CPU value are left out.
func AggregateBy(profiles []types.ProcessMemoryProfile, key types.GroupKey) (map[string]types.GroupSummary, error) {
	selector, err := keySelector(key)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]types.GroupSummary)
	for _, p := range profiles {
		k, ok := selector(p)
		if !ok {
			continue
		}
		g := groups[k]
		g.Key = k
		g.MemberCount++
		g.TotalURESBytes += p.URESBytes
		g.TotalRSSBytes += p.TotalRSSBytes
		g.UserTicks += p.UserTicks
		g.SystemTicks += p.SystemTicks
		groups[k] = g
	}
	return groups, nil
}

// HasCPUData reports whether the snapshot carries usable last-CPU values.
// Every process on a single-CPU host, or on a kernel that does not fill the
// field, reports CPU 0, so only a non-zero id counts as evidence.
func HasCPUData(profiles []types.ProcessMemoryProfile) bool {
	for _, p := range profiles {
		if p.LastCPU != nil && *p.LastCPU > 0 {
			return true
		}
	}
	return false
}

func keySelector(key types.GroupKey) (func(types.ProcessMemoryProfile) (string, bool), error) {
	switch key {
	case types.ByUser:
		return func(p types.ProcessMemoryProfile) (string, bool) { return userKey(p.Process), true }, nil
	case types.ByCommand:
		return func(p types.ProcessMemoryProfile) (string, bool) { return p.Comm, true }, nil
	case types.ByCPU:
		return func(p types.ProcessMemoryProfile) (string, bool) {
			if p.LastCPU == nil {
				return "", false
			}
			return strconv.Itoa(*p.LastCPU), true
		}, nil
	}
	return nil, fmt.Errorf("unknown group key %d", int(key))
}

// userKey falls back to the numeric uid when no name was resolved.
func userKey(p types.Process) string {
	if p.User != "" {
		return p.User
	}
	return strconv.FormatUint(uint64(p.UID), 10)
}
