//go:build linux
// +build linux

package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/procfs"

	"github.com/srodi/ures/pkg/types"
)

// Reader enumerates processes and reads their mappings from a procfs mount.
type Reader struct {
	root  string
	fs    procfs.FS
	users *userCache
}

// NewReader opens the procfs mounted at root (procfs.DefaultMountPoint when empty).
func NewReader(root string) (*Reader, error) {
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", root, err)
	}
	return &Reader{root: root, fs: fs, users: newUserCache()}, nil
}

// ListLiveProcesses returns every user process visible at call time. Kernel
// threads have no address space and are left out, as are processes that exit
// while the table is being walked. The real uid and the Vm* figures come from
// /proc/PID/status.
func (r *Reader) ListLiveProcesses(ctx context.Context) ([]types.Process, error) {
	procs, err := r.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	out := make([]types.Process, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		if stat.VSize == 0 {
			continue
		}
		status, err := p.NewStatus()
		if err != nil {
			continue
		}
		uid := uint32(status.UIDs[0])
		lastCPU := int(stat.Processor)
		out = append(out, types.Process{
			PID:          p.PID,
			UID:          uid,
			User:         r.users.name(uid),
			Comm:         stat.Comm,
			LastCPU:      &lastCPU,
			State:        stat.State,
			Threads:      stat.NumThreads,
			MinorFaults:  uint64(stat.MinFlt),
			MajorFaults:  uint64(stat.MajFlt),
			UserTicks:    uint64(stat.UTime),
			SystemTicks:  uint64(stat.STime),
			StartTime:    startTime(stat),
			VirtualBytes: uint64(stat.VSize),
			Status:       statusMemory(status),
		})
	}
	return out, nil
}

// ReadMappings parses /proc/PID/smaps. A process that has exited yields an
// error matching ures.ErrProcessVanished; a process whose maps we may not read
// yields an error matching fs.ErrPermission.
func (r *Reader) ReadMappings(ctx context.Context, pid int) ([]types.MappingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path(pid, "smaps"))
	if err != nil {
		return nil, classifyReadErr(pid, err)
	}
	defer f.Close()

	records, err := parseSmaps(f, pid)
	if err != nil {
		return nil, classifyReadErr(pid, err)
	}
	return records, nil
}

// startTime converts the start offset to wall time using the procfs boot time.
// It is zero when /proc/stat cannot be read.
func startTime(stat procfs.ProcStat) time.Time {
	secs, err := stat.StartTime()
	if err != nil {
		return time.Time{}
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second)))
}

func statusMemory(s procfs.ProcStatus) *types.StatusMemory {
	return &types.StatusMemory{
		PeakBytes:   s.VmPeak,
		LockedBytes: s.VmLck,
		HWMBytes:    s.VmHWM,
		DataBytes:   s.VmData,
		StackBytes:  s.VmStk,
		ExeBytes:    s.VmExe,
		LibBytes:    s.VmLib,
		PTEBytes:    s.VmPTE,
	}
}

func (r *Reader) path(pid int, name string) string {
	return filepath.Join(r.root, strconv.Itoa(pid), name)
}
