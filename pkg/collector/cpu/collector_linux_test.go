//go:build linux

package cpu

import (
	"testing"

	"github.com/cilium/ebpf/asm"
)

func TestLastCPUProgramShape(t *testing.T) {
	insns := lastCPUProgram(7)

	first := insns[0]
	if first.OpCode.Class() != asm.LdXClass || first.Offset != prevPIDOffset || first.Src != asm.R1 {
		t.Fatalf("program should start by loading prev_pid from ctx, got %v", first)
	}
	if last := insns[len(insns)-1]; last.OpCode.JumpOp() != asm.Exit {
		t.Fatalf("program should end with exit, got %v", last)
	}

	var calls []asm.BuiltinFunc
	for _, ins := range insns {
		if ins.IsBuiltinCall() {
			calls = append(calls, asm.BuiltinFunc(ins.Constant))
		}
	}
	if len(calls) != 2 || calls[0] != asm.FnGetSmpProcessorId || calls[1] != asm.FnMapUpdateElem {
		t.Fatalf("unexpected helper calls: %v", calls)
	}

	if insns[1].Reference() != "exit" {
		t.Fatalf("expected idle task check to jump to exit, got %q", insns[1].Reference())
	}
	if insns[len(insns)-2].Symbol() != "exit" {
		t.Fatalf("exit label misplaced")
	}
}
