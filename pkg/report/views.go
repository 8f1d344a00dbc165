package report

import (
	"sort"
	"strings"

	"github.com/srodi/ures/pkg/types"
	"github.com/srodi/ures/pkg/ures"
)

// RestKey labels the row that collects commands below the rest threshold.
const RestKey = "Rest"

// DefaultRestThreshold lumps commands using less than 1 MiB together.
const DefaultRestThreshold = 1 << 20

// FilterConfig controls which processes take part in the reports.
type FilterConfig struct {
	HideKernel    *bool // nil defaults to true so kernel threads stay hidden unless explicitly shown
	UserFilter    string
	CommandFilter string
}

func (cfg FilterConfig) hideKernelEnabled() bool {
	if cfg.HideKernel == nil {
		return true
	}
	return *cfg.HideKernel
}

// ViewConfig shapes the sorted views.
type ViewConfig struct {
	Filter             FilterConfig
	TopK               int // 0 keeps every process
	RestThresholdBytes uint64
}

// Reports holds the ordered views of one snapshot. CPUs is nil and HasCPU is
// false when the snapshot has no per-CPU data.
type Reports struct {
	Processes      []types.ProcessMemoryProfile
	Users          []types.GroupSummary
	Commands       []types.GroupSummary
	CPUs           []types.GroupSummary
	HasCPU         bool
	TotalURESBytes uint64
	TotalRSSBytes  uint64
}

// Count returns how many reports the snapshot produces.
func (r Reports) Count() int {
	if r.HasCPU {
		return 4
	}
	return 3
}

// BuildReports filters the profiles and derives the process, user, command
// and CPU views from the same filtered set.
func BuildReports(profiles []types.ProcessMemoryProfile, cfg ViewConfig) (Reports, error) {
	filtered := FilterProfiles(profiles, cfg.Filter)
	if len(filtered) == 0 {
		return Reports{}, ures.ErrNoData
	}

	var out Reports
	for _, p := range filtered {
		out.TotalURESBytes += p.URESBytes
		out.TotalRSSBytes += p.TotalRSSBytes
	}

	users, err := ures.AggregateBy(filtered, types.ByUser)
	if err != nil {
		return Reports{}, err
	}
	out.Users = SortGroups(users)

	commands, err := ures.AggregateBy(filtered, types.ByCommand)
	if err != nil {
		return Reports{}, err
	}
	out.Commands = lumpRest(SortGroups(commands), cfg.RestThresholdBytes)

	if ures.HasCPUData(filtered) {
		cpus, err := ures.AggregateBy(filtered, types.ByCPU)
		if err != nil {
			return Reports{}, err
		}
		out.CPUs = SortGroups(cpus)
		out.HasCPU = true
	}

	out.Processes = SortProcesses(filtered)
	if cfg.TopK > 0 && len(out.Processes) > cfg.TopK {
		out.Processes = out.Processes[:cfg.TopK]
	}
	return out, nil
}

// FilterProfiles applies HideKernel and the user/command filters.
func FilterProfiles(profiles []types.ProcessMemoryProfile, cfg FilterConfig) []types.ProcessMemoryProfile {
	filtered := make([]types.ProcessMemoryProfile, 0, len(profiles))
	for _, p := range profiles {
		if passesFilters(p, cfg) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SortProcesses orders by URES descending, then command name and PID.
func SortProcesses(profiles []types.ProcessMemoryProfile) []types.ProcessMemoryProfile {
	out := append([]types.ProcessMemoryProfile(nil), profiles...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].URESBytes != out[j].URESBytes {
			return out[i].URESBytes > out[j].URESBytes
		}
		if out[i].Comm != out[j].Comm {
			return out[i].Comm < out[j].Comm
		}
		return out[i].PID < out[j].PID
	})
	return out
}

// SortGroups orders summaries by total URES descending, then key.
func SortGroups(groups map[string]types.GroupSummary) []types.GroupSummary {
	out := make([]types.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalURESBytes != out[j].TotalURESBytes {
			return out[i].TotalURESBytes > out[j].TotalURESBytes
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// lumpRest folds sorted groups below threshold into one trailing RestKey row.
func lumpRest(sorted []types.GroupSummary, threshold uint64) []types.GroupSummary {
	if threshold == 0 {
		return sorted
	}
	out := make([]types.GroupSummary, 0, len(sorted)+1)
	rest := types.GroupSummary{Key: RestKey}
	for _, g := range sorted {
		if g.TotalURESBytes >= threshold {
			out = append(out, g)
			continue
		}
		rest.MemberCount += g.MemberCount
		rest.TotalURESBytes += g.TotalURESBytes
		rest.TotalRSSBytes += g.TotalRSSBytes
		rest.UserTicks += g.UserTicks
		rest.SystemTicks += g.SystemTicks
	}
	if rest.MemberCount > 0 {
		out = append(out, rest)
	}
	return out
}

func passesFilters(p types.ProcessMemoryProfile, cfg FilterConfig) bool {
	if cfg.hideKernelEnabled() && isKernelThread(p) {
		return false
	}
	if cfg.UserFilter != "" && !strings.Contains(strings.ToLower(p.User), cfg.UserFilter) {
		return false
	}
	if cfg.CommandFilter != "" && !strings.Contains(strings.ToLower(p.Comm), cfg.CommandFilter) {
		return false
	}
	return true
}

// isKernelThread catches kernel threads that slipped past the reader, which
// already drops tasks without an address space.
func isKernelThread(p types.ProcessMemoryProfile) bool {
	if p.PID == 0 {
		return true
	}
	if p.VirtualBytes != 0 || p.TotalRSSBytes != 0 {
		return false
	}
	name := strings.ToLower(p.Comm)
	switch {
	case strings.HasPrefix(name, "kworker"), strings.HasPrefix(name, "ksoftirqd"), strings.HasPrefix(name, "kthreadd"),
		strings.HasPrefix(name, "migration"), strings.HasPrefix(name, "watchdog"), strings.HasPrefix(name, "rcu"),
		strings.HasPrefix(name, "irq/"):
		return true
	}
	return false
}
