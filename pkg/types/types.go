package types

import "time"

// DefaultHeaderEvery controls how often the process table repeats its header.
const DefaultHeaderEvery = 25

// MappingRecord is one resident piece of a process mapping together with the
// number of processes mapping the same physical pages.
type MappingRecord struct {
	PID        int
	SizeBytes  uint64
	ShareCount uint32 // 0 means the count could not be determined
	Name       string
}

// Process carries the metadata of a live process taken at enumeration time.
type Process struct {
	PID          int
	UID          uint32
	User         string
	Comm         string
	LastCPU      *int // nil when the platform does not expose it
	State        string
	Threads      int
	MinorFaults  uint64
	MajorFaults  uint64
	UserTicks    uint64
	SystemTicks  uint64
	StartTime    time.Time
	VirtualBytes uint64
	Status       *StatusMemory // nil when /proc/PID/status was not read
}

// StatusMemory holds the Vm* figures of /proc/PID/status, in bytes.
type StatusMemory struct {
	PeakBytes   uint64 // VmPeak
	LockedBytes uint64 // VmLck
	HWMBytes    uint64 // VmHWM
	DataBytes   uint64 // VmData
	StackBytes  uint64 // VmStk
	ExeBytes    uint64 // VmExe
	LibBytes    uint64 // VmLib
	PTEBytes    uint64 // VmPTE
}

// ProcessMemoryProfile is the memory attribution computed for one process.
type ProcessMemoryProfile struct {
	Process
	TotalRSSBytes uint64
	URESBytes     uint64
	Mappings      int
}

// GroupKey selects how profiles are folded together.
type GroupKey int

const (
	ByUser GroupKey = iota
	ByCommand
	ByCPU
)

func (k GroupKey) String() string {
	switch k {
	case ByUser:
		return "user"
	case ByCommand:
		return "command"
	case ByCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// GroupSummary sums the profiles sharing one grouping value.
type GroupSummary struct {
	Key            string
	MemberCount    int
	TotalURESBytes uint64
	TotalRSSBytes  uint64
	UserTicks      uint64
	SystemTicks    uint64
}

// SystemMemory is the host-wide RAM and swap picture shown above the reports.
type SystemMemory struct {
	TotalBytes     uint64
	UserspaceFree  uint64
	SwapTotalBytes uint64
	SwapFreeBytes  uint64
}
