package memory

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/srodi/ures/pkg/types"
)

// virtualMemory and swapMemory allow tests to stub host-wide memory reads.
var (
	virtualMemory = mem.VirtualMemoryWithContext
	swapMemory    = mem.SwapMemoryWithContext
)

// SystemMemory returns total RAM, the memory available to userspace
// (free plus buffers and page cache) and swap usage.
func SystemMemory(ctx context.Context) (types.SystemMemory, error) {
	vm, err := virtualMemory(ctx)
	if err != nil {
		return types.SystemMemory{}, fmt.Errorf("reading virtual memory: %w", err)
	}
	out := types.SystemMemory{
		TotalBytes:    vm.Total,
		UserspaceFree: vm.Free + vm.Buffers + vm.Cached,
	}
	swap, err := swapMemory(ctx)
	if err != nil {
		return out, fmt.Errorf("reading swap: %w", err)
	}
	out.SwapTotalBytes = swap.Total
	out.SwapFreeBytes = swap.Free
	return out, nil
}
