package schedule

import (
	vm "github.com/eth2030/eth2030/core/vm"
	"github.com/holiman/uint256"
)

// FusedKind enumerates every event the Pattern Recognizer can yield
// (spec.md 4.2): the five raw kinds passed through unchanged, plus one
// member per recognized fusion.
type FusedKind uint8

const (
	FERegular FusedKind = iota
	FEPush
	FEJumpdest
	FEStop
	FEInvalid

	FEPushOpFusion // value in Value, the fused arithmetic/memory op in Op
	FEPushJumpFusion
	FEPushJumpiFusion
	FEIszeroJumpi
	FEMultiPush
	FEMultiPop
	FEDup2MstorePush
	FEDup3AddMstore
	FESwap1Dup2Add
	FEPushDup3Add
	FEPushAddDup1
	FEMloadSwap1Dup2
	FEFunctionDispatch
	FECallvalueCheck
	FEPush0Revert
)

// FusedEvent is the Pattern Recognizer's output unit. Which fields are
// meaningful depends on Kind, mirroring the raw Event's shape.
type FusedEvent struct {
	Kind FusedKind
	PC   uint64
	Op   vm.OpCode // pass-through opcode, or the fused op for FEPushOpFusion

	Value    uint256.Int   // push value / single fusion operand
	Values   []uint256.Int // FEMultiPush operands, in source order
	Target   uint256.Int   // jump target pc for *jump*/iszero_jumpi/function_dispatch, full width
	Selector uint64        // FEFunctionDispatch's 4-byte selector, always fits uint64
	Count    int           // FEMultiPop run length
	Size     int           // FEPush immediate width in bytes, as in Event.Size
}

var pushOpFusionOps = map[vm.OpCode]FusionSet{
	vm.ADD: FusionPushArith, vm.MUL: FusionPushArith, vm.SUB: FusionPushArith,
	vm.DIV: FusionPushArith, vm.AND: FusionPushArith, vm.OR: FusionPushArith, vm.XOR: FusionPushArith,
	vm.MLOAD: FusionPushMem, vm.MSTORE: FusionPushMem, vm.MSTORE8: FusionPushMem,
}

// pushFusionSynthetic maps a push_<op>_fusion's trailing opcode to the
// synthetic opcode the builder emits for it.
var pushFusionSynthetic = map[vm.OpCode]SyntheticOp{
	vm.ADD: SynPushAddFusion, vm.MUL: SynPushMulFusion, vm.SUB: SynPushSubFusion,
	vm.DIV: SynPushDivFusion, vm.AND: SynPushAndFusion, vm.OR: SynPushOrFusion, vm.XOR: SynPushXorFusion,
	vm.MLOAD: SynPushMloadFusion, vm.MSTORE: SynPushMstoreFusion, vm.MSTORE8: SynPushMstore8Fusion,
}

// Recognizer wraps an Iterator with a small lookahead buffer and applies
// the fusion rules of spec.md 4.2 greedily and non-overlappingly: once a
// window is consumed the next event begins strictly after it. None of the
// recognized windows include a JUMPDEST event, so a JUMPDEST anywhere in a
// candidate window fails the type match on its own — no separate
// "don't cross a JUMPDEST" check is needed.
type Recognizer struct {
	it     *Iterator
	code   []byte
	fusion FusionSet
	buf    []Event
}

// NewRecognizer returns a Recognizer over code with the given fusion set
// active. FusionNone degrades it to a pass-through over the raw iterator.
func NewRecognizer(code []byte, fusion FusionSet) *Recognizer {
	return &Recognizer{it: NewIterator(code), code: code, fusion: fusion}
}

// fill ensures at least n raw events are buffered, short of end-of-stream.
func (r *Recognizer) fill(n int) {
	for len(r.buf) < n {
		ev, ok := r.it.Advance()
		if !ok {
			return
		}
		r.buf = append(r.buf, ev)
	}
}

// peek returns the buffered event at index i (0-based from the next
// unconsumed event), or false if the stream ends before reaching it.
func (r *Recognizer) peek(i int) (Event, bool) {
	r.fill(i + 1)
	if i >= len(r.buf) {
		return Event{}, false
	}
	return r.buf[i], true
}

// consume drops the first n buffered events, which must already be filled.
func (r *Recognizer) consume(n int) {
	r.buf = r.buf[n:]
}

func isArithLike(op vm.OpCode) bool {
	_, ok := pushOpFusionOps[op]
	return ok
}

// Advance yields the next fused event, or ok == false at end-of-stream.
func (r *Recognizer) Advance() (FusedEvent, bool) {
	ev0, ok := r.peek(0)
	if !ok {
		return FusedEvent{}, false
	}

	switch ev0.Kind {
	case EventJumpdest:
		r.consume(1)
		return FusedEvent{Kind: FEJumpdest, PC: ev0.PC, Op: ev0.Op}, true
	case EventStop:
		r.consume(1)
		return FusedEvent{Kind: FEStop, PC: ev0.PC, Op: ev0.Op}, true
	case EventInvalid:
		r.consume(1)
		return FusedEvent{Kind: FEInvalid, PC: ev0.PC, Op: ev0.Op}, true
	case EventPush:
		return r.advancePush(ev0)
	default:
		return r.advanceRegular(ev0)
	}
}

func (r *Recognizer) advancePush(ev0 Event) (FusedEvent, bool) {
	// function_dispatch: PUSH4(selector) EQ PUSH(target) JUMPI
	if r.fusion.Has(FusionFunctionDispatch) && ev0.Op == vm.PUSH4 {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.EQ {
			if ev2, ok := r.peek(2); ok && ev2.Kind == EventPush {
				if ev3, ok := r.peek(3); ok && ev3.Kind == EventRegular && ev3.Op == vm.JUMPI {
					r.consume(4)
					return FusedEvent{
						Kind: FEFunctionDispatch, PC: ev0.PC,
						Selector: ev0.Value.Uint64(), Target: ev2.Value,
					}, true
				}
			}
		}
	}

	// push0_revert: PUSH0 REVERT
	if r.fusion.Has(FusionPush0Revert) && ev0.Op == vm.PUSH0 {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.REVERT {
			r.consume(2)
			return FusedEvent{Kind: FEPush0Revert, PC: ev0.PC}, true
		}
	}

	// iszero_jumpi: PUSH ISZERO JUMPI
	if r.fusion.Has(FusionIszeroJumpi) {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.ISZERO {
			if ev2, ok := r.peek(2); ok && ev2.Kind == EventRegular && ev2.Op == vm.JUMPI {
				r.consume(3)
				return FusedEvent{Kind: FEIszeroJumpi, PC: ev0.PC, Value: ev0.Value, Target: ev0.Value}, true
			}
		}
	}

	// push_jump_fusion / push_jumpi_fusion: PUSH JUMP|JUMPI
	if r.fusion.Has(FusionPushJump) {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular {
			switch ev1.Op {
			case vm.JUMP:
				r.consume(2)
				return FusedEvent{Kind: FEPushJumpFusion, PC: ev0.PC, Value: ev0.Value, Target: ev0.Value}, true
			case vm.JUMPI:
				r.consume(2)
				return FusedEvent{Kind: FEPushJumpiFusion, PC: ev0.PC, Value: ev0.Value, Target: ev0.Value}, true
			}
		}
	}

	// push_dup3_add(v): PUSH DUP3 ADD
	if r.fusion.Has(FusionPeephole) {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.DUP3 {
			if ev2, ok := r.peek(2); ok && ev2.Kind == EventRegular && ev2.Op == vm.ADD {
				r.consume(3)
				return FusedEvent{Kind: FEPushDup3Add, PC: ev0.PC, Value: ev0.Value}, true
			}
		}
		// push_add_dup1(v): PUSH ADD DUP1
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.ADD {
			if ev2, ok := r.peek(2); ok && ev2.Kind == EventRegular && ev2.Op == vm.DUP1 {
				r.consume(3)
				return FusedEvent{Kind: FEPushAddDup1, PC: ev0.PC, Value: ev0.Value}, true
			}
		}
	}

	// push_<op>_fusion: PUSH <arith-or-mem op>
	if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && isArithLike(ev1.Op) {
		if r.fusion.Has(pushOpFusionOps[ev1.Op]) {
			r.consume(2)
			return FusedEvent{Kind: FEPushOpFusion, PC: ev0.PC, Op: ev1.Op, Value: ev0.Value}, true
		}
	}

	// multi_push: two or three consecutive short PUSHes (PUSH1..PUSH8).
	if r.fusion.Has(FusionMultiPush) && ev0.Op.IsPush() && ev0.Size <= 8 {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventPush && ev1.Op.IsPush() && ev1.Size <= 8 {
			if ev2, ok := r.peek(2); ok && ev2.Kind == EventPush && ev2.Op.IsPush() && ev2.Size <= 8 {
				r.consume(3)
				return FusedEvent{Kind: FEMultiPush, PC: ev0.PC, Values: []uint256.Int{ev0.Value, ev1.Value, ev2.Value}}, true
			}
			r.consume(2)
			return FusedEvent{Kind: FEMultiPush, PC: ev0.PC, Values: []uint256.Int{ev0.Value, ev1.Value}}, true
		}
	}

	r.consume(1)
	return FusedEvent{Kind: FEPush, PC: ev0.PC, Op: ev0.Op, Size: ev0.Size, Value: ev0.Value}, true
}

func (r *Recognizer) advanceRegular(ev0 Event) (FusedEvent, bool) {
	if r.fusion.Has(FusionPeephole) {
		switch ev0.Op {
		case vm.DUP2:
			if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.MSTORE {
				if ev2, ok := r.peek(2); ok && ev2.Kind == EventPush {
					r.consume(3)
					return FusedEvent{Kind: FEDup2MstorePush, PC: ev0.PC, Value: ev2.Value}, true
				}
			}
		case vm.DUP3:
			if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.ADD {
				if ev2, ok := r.peek(2); ok && ev2.Kind == EventRegular && ev2.Op == vm.MSTORE {
					r.consume(3)
					return FusedEvent{Kind: FEDup3AddMstore, PC: ev0.PC}, true
				}
			}
		case vm.SWAP1:
			if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.DUP2 {
				if ev2, ok := r.peek(2); ok && ev2.Kind == EventRegular && ev2.Op == vm.ADD {
					r.consume(3)
					return FusedEvent{Kind: FESwap1Dup2Add, PC: ev0.PC}, true
				}
			}
		case vm.MLOAD:
			if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.SWAP1 {
				if ev2, ok := r.peek(2); ok && ev2.Kind == EventRegular && ev2.Op == vm.DUP2 {
					r.consume(3)
					return FusedEvent{Kind: FEMloadSwap1Dup2, PC: ev0.PC}, true
				}
			}
		}
	}

	if r.fusion.Has(FusionCallvalueCheck) && ev0.Op == vm.CALLVALUE {
		if ev1, ok := r.peek(1); ok && ev1.Kind == EventRegular && ev1.Op == vm.ISZERO {
			r.consume(2)
			return FusedEvent{Kind: FECallvalueCheck, PC: ev0.PC}, true
		}
	}

	if r.fusion.Has(FusionMultiPop) && ev0.Op == vm.POP {
		count := 1
		for {
			ev, ok := r.peek(count)
			if !ok || ev.Kind != EventRegular || ev.Op != vm.POP {
				break
			}
			count++
		}
		if count >= 2 {
			r.consume(count)
			return FusedEvent{Kind: FEMultiPop, PC: ev0.PC, Count: count}, true
		}
	}

	r.consume(1)
	return FusedEvent{Kind: FERegular, PC: ev0.PC, Op: ev0.Op}, true
}
