//go:build linux
// +build linux

package cpu

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/link"
)

// Collector owns the eBPF program recording which CPU each task last ran on.
type Collector struct {
	lastCPU *ebpf.Map
	prog    *ebpf.Program
	tp      link.Link
}

const (
	maxTrackedTasks = 1 << 16
	// prevPIDOffset is the offset of prev_pid in the sched_switch record:
	// 8 bytes of common fields followed by prev_comm[16].
	prevPIDOffset = 24
)

// NewCollector creates the pid->cpu map, loads the program and attaches it to
// sched/sched_switch. The task being switched out is the one that just ran on
// the current CPU.
func NewCollector() (*Collector, error) {
	m, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "last_cpu",
		Type:       ebpf.Hash,
		KeySize:    4,
		ValueSize:  4,
		MaxEntries: maxTrackedTasks,
	})
	if err != nil {
		return nil, fmt.Errorf("creating last_cpu map: %w", err)
	}

	prog, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         "record_last_cpu",
		Type:         ebpf.TracePoint,
		License:      "GPL",
		Instructions: lastCPUProgram(m.FD()),
	})
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("loading sched_switch program: %w", err)
	}

	tp, err := link.Tracepoint("sched", "sched_switch", prog, nil)
	if err != nil {
		prog.Close()
		m.Close()
		return nil, fmt.Errorf("attaching tracepoint: %w", err)
	}

	return &Collector{lastCPU: m, prog: prog, tp: tp}, nil
}

// lastCPUProgram stores bpf_get_smp_processor_id() under prev_pid.
func lastCPUProgram(mapFD int) asm.Instructions {
	return asm.Instructions{
		asm.LoadMem(asm.R6, asm.R1, prevPIDOffset, asm.Word),
		asm.JEq.Imm(asm.R6, 0, "exit"),
		asm.StoreMem(asm.RFP, -4, asm.R6, asm.Word),
		asm.FnGetSmpProcessorId.Call(),
		asm.StoreMem(asm.RFP, -8, asm.R0, asm.Word),
		asm.LoadMapPtr(asm.R1, mapFD),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.Mov.Reg(asm.R3, asm.RFP),
		asm.Add.Imm(asm.R3, -8),
		asm.Mov.Imm(asm.R4, 0),
		asm.FnMapUpdateElem.Call(),
		asm.Mov.Imm(asm.R0, 0).WithSymbol("exit"),
		asm.Return(),
	}
}

// Close releases the BPF resources and detaches the tracepoint.
func (c *Collector) Close() error {
	var err error
	if c.tp != nil {
		err = errors.Join(err, c.tp.Close())
	}
	if c.prog != nil {
		err = errors.Join(err, c.prog.Close())
	}
	if c.lastCPU != nil {
		err = errors.Join(err, c.lastCPU.Close())
	}
	return err
}

// Snapshot returns the last CPU of every task switched out since attaching.
func (c *Collector) Snapshot() (map[int]int, error) {
	out := make(map[int]int)
	iter := c.lastCPU.Iterate()
	var pid, cpu uint32
	for iter.Next(&pid, &cpu) {
		out[int(pid)] = int(cpu)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterating last_cpu map: %w", err)
	}
	return out, nil
}
