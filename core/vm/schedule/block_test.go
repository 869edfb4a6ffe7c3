package schedule

import (
	"testing"

	vm "github.com/eth2030/eth2030/core/vm"
)

// PUSH1 5, PUSH1 3, ADD, STOP -- spec.md 8 scenario 1's literal expected
// gas/stack triple, the anchor this whole package's block-analysis logic
// was hand-traced against.
func TestAnalyzeBlockPushPushAddStop(t *testing.T) {
	code := []byte{0x60, 0x05, 0x60, 0x03, 0x01, 0x00}
	meta := AnalyzeBlock(code, 0)
	if meta.Gas != 9 {
		t.Fatalf("Gas = %d, want 9", meta.Gas)
	}
	if meta.MinStack != 0 {
		t.Fatalf("MinStack = %d, want 0", meta.MinStack)
	}
	if meta.MaxStack != 2 {
		t.Fatalf("MaxStack = %d, want 2", meta.MaxStack)
	}
}

// A JUMPDEST as the very first event ends the block before accounting for
// anything: an empty block has zero gas and zero stack movement.
func TestAnalyzeBlockStartingAtJumpdestIsEmpty(t *testing.T) {
	code := []byte{0x5B, 0x00}
	meta := AnalyzeBlock(code, 0)
	if meta.Gas != 0 || meta.MinStack != 0 || meta.MaxStack != 0 {
		t.Fatalf("meta = %+v, want all-zero", meta)
	}
}

// The terminator's own gas and stack effect are excluded from the block
// total (P7: "up to but not including its terminator"). POP ADD JUMP:
// JUMP is the terminator and must not contribute its GasJump or its pop.
func TestAnalyzeBlockExcludesTerminatorEffect(t *testing.T) {
	code := []byte{0x50, 0x01, 0x56} // POP, ADD, JUMP
	meta := AnalyzeBlock(code, 0)
	want := vm.GasPop + vm.GasVerylow
	if meta.Gas != want {
		t.Fatalf("Gas = %d, want %d", meta.Gas, want)
	}
}

// DUP2 reads two items deep without popping either: a block that opens
// with DUP2 needs an incoming stack of at least 2, not 0.
func TestAnalyzeBlockDupReadDepthDrivesMinStack(t *testing.T) {
	code := []byte{0x81, 0x00} // DUP2, STOP
	meta := AnalyzeBlock(code, 0)
	if meta.MinStack != -2 {
		t.Fatalf("MinStack = %d, want -2", meta.MinStack)
	}
	if meta.MaxStack != 1 {
		t.Fatalf("MaxStack = %d, want 1", meta.MaxStack)
	}
}

// An unassigned opcode byte is unified with literal INVALID as a block
// terminator (the Iterator and the builder's own handler emission both
// treat them identically): it ends the block without contributing its own
// gas or stack effect, the same way P7 excludes any terminator's own
// effect from the block total.
func TestAnalyzeBlockUnknownOpcodeUsesConservativeDefault(t *testing.T) {
	code := []byte{0x0c, 0x00} // unassigned byte, then STOP
	meta := AnalyzeBlock(code, 0)
	if meta.Gas != 0 || meta.MinStack != 0 || meta.MaxStack != 0 {
		t.Fatalf("meta = %+v, want all-zero", meta)
	}
}

// An unassigned opcode byte must end the block immediately, not merely
// charge its conservative gas and keep walking: bytes after it (here an ADD)
// can never actually execute, since at runtime a non-0xFE unknown byte and
// literal INVALID resolve to the same halting handler.
func TestAnalyzeBlockUnknownOpcodeTerminatesBlock(t *testing.T) {
	code := []byte{0x0c, 0x01, 0x00} // unassigned byte, ADD, STOP
	meta := AnalyzeBlock(code, 0)
	if meta.Gas != 0 || meta.MinStack != 0 || meta.MaxStack != 0 {
		t.Fatalf("meta = %+v, want all-zero (ADD must not be accounted for)", meta)
	}
}

// Reaching end-of-code with no terminator or JUMPDEST still closes the
// block normally; AnalyzeBlock must not require a trailing sentinel to
// produce a correct total.
func TestAnalyzeBlockEndsAtEndOfCode(t *testing.T) {
	code := []byte{0x60, 0x01, 0x60, 0x02} // PUSH1 1, PUSH1 2, no terminator
	meta := AnalyzeBlock(code, 0)
	want := 2 * vm.GasPush
	if meta.Gas != want {
		t.Fatalf("Gas = %d, want %d", meta.Gas, want)
	}
	if meta.MinStack != 0 {
		t.Fatalf("MinStack = %d, want 0", meta.MinStack)
	}
	if meta.MaxStack != 2 {
		t.Fatalf("MaxStack = %d, want 2", meta.MaxStack)
	}
}

// AnalyzeBlock starting mid-stream (as the builder does for the block
// following a JUMPDEST) only accounts for bytes from start onward.
func TestAnalyzeBlockStartOffsetIsRespected(t *testing.T) {
	code := []byte{0x60, 0x01, 0x5B, 0x60, 0x02, 0x00} // PUSH1 1, JUMPDEST, PUSH1 2, STOP
	meta := AnalyzeBlock(code, 3)
	if meta.Gas != vm.GasPush {
		t.Fatalf("Gas = %d, want %d", meta.Gas, vm.GasPush)
	}
	if meta.MinStack != 0 {
		t.Fatalf("MinStack = %d, want 0", meta.MinStack)
	}
	if meta.MaxStack != 1 {
		t.Fatalf("MaxStack = %d, want 1", meta.MaxStack)
	}
}
