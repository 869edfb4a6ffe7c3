package schedule

import vm "github.com/eth2030/eth2030/core/vm"

// isTerminator reports whether op ends a basic block (spec.md 4.3). The
// walk excludes the terminator's own gas and stack effect from the block
// (spec.md 8, P7: "up to but not including its terminator") — a
// terminator's handler charges its own cost at runtime, the same way a
// JUMPDEST's own GasJumpDest is charged by the JUMPDEST handler rather than
// folded into the block that follows it.
func isTerminator(op vm.OpCode) bool {
	switch op {
	case vm.JUMP, vm.JUMPI, vm.STOP, vm.RETURN, vm.REVERT, vm.INVALID, vm.SELFDESTRUCT:
		return true
	default:
		return false
	}
}

// AnalyzeBlock walks raw bytecode from start, the way spec.md 4.3 describes,
// independent of whatever fusion the Pattern Recognizer would apply to the
// same bytes: block gas and stack bounds are an opcode-semantic fact, and
// must come out identical whether or not Config.Fusions is enabled (R2).
func AnalyzeBlock(code []byte, start uint64) BlockMeta {
	it := NewIteratorAt(code, start)

	var gas uint64
	var stackEffect, minStack, maxStack int32

	for {
		ev, ok := it.Advance()
		if !ok {
			break
		}
		if ev.Kind == EventJumpdest || ev.Kind == EventInvalid || isTerminator(ev.Op) {
			break
		}

		info := InfoOf(ev.Op)

		depthNeeded := stackEffect - int32(info.ReadDepth)
		if depthNeeded < minStack {
			minStack = depthNeeded
		}

		gas = saturatingAddU64(gas, info.Gas)

		stackEffect += int32(info.Push) - int32(info.Pop)
		if stackEffect > maxStack {
			maxStack = stackEffect
		}
	}

	return BlockMeta{Gas: gas, MinStack: minStack, MaxStack: maxStack}
}

func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}
