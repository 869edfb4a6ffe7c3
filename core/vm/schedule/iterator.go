package schedule

import (
	"strings"

	vm "github.com/eth2030/eth2030/core/vm"
	"github.com/holiman/uint256"
)

// EventKind classifies a semantic event yielded by Iterator.Advance
// (spec.md 4.1).
type EventKind uint8

const (
	EventRegular EventKind = iota
	EventPush
	EventJumpdest
	EventStop
	EventInvalid
)

// Event is one semantic event from the Bytecode Iterator: an opcode (or
// PUSH) together with the byte offset at which it begins.
type Event struct {
	Kind EventKind
	PC   uint64
	Op   vm.OpCode

	// Size is the PUSH immediate width in bytes (0 for PUSH0, 1..32 for
	// PUSH1..PUSH32). Meaningful only when Kind == EventPush.
	Size int
	// Value is the big-endian integer interpretation of a PUSH immediate,
	// zero-padded if the immediate runs past the end of the bytecode.
	// Meaningful only when Kind == EventPush.
	Value uint256.Int
}

// Iterator walks raw bytecode and yields the semantic event stream of
// spec.md 4.1: it never emits a byte that lies inside a PUSH immediate,
// which is the one invariant JUMPDEST analysis depends on.
type Iterator struct {
	code []byte
	pos  uint64
}

// NewIterator returns an Iterator starting at the beginning of code.
func NewIterator(code []byte) *Iterator {
	return &Iterator{code: code}
}

// NewIteratorAt returns an Iterator starting at the given byte offset, used
// by the Block Analyzer to walk a block in isolation from its siblings.
func NewIteratorAt(code []byte, pc uint64) *Iterator {
	return &Iterator{code: code, pos: pc}
}

// PC reports the iterator's current cursor position.
func (it *Iterator) PC() uint64 { return it.pos }

// Advance yields the next event, or ok == false at end-of-stream. No
// bytecode is ever rejected at this layer: truncated PUSH immediates are
// zero-extended rather than failing (spec.md 4.1, 7 taxonomy item 4).
func (it *Iterator) Advance() (ev Event, ok bool) {
	if it.pos >= uint64(len(it.code)) {
		return Event{}, false
	}

	pc := it.pos
	op := vm.OpCode(it.code[pc])

	switch {
	case op == vm.JUMPDEST:
		it.pos++
		return Event{Kind: EventJumpdest, PC: pc, Op: op}, true

	case op == vm.STOP:
		it.pos++
		return Event{Kind: EventStop, PC: pc, Op: op}, true

	case op == vm.PUSH0:
		it.pos++
		return Event{Kind: EventPush, PC: pc, Op: op, Size: 0}, true

	case op.IsPush():
		size := int(op-vm.PUSH1) + 1
		start := pc + 1
		var buf [32]byte
		end := start + uint64(size)
		if end > uint64(len(it.code)) {
			end = uint64(len(it.code))
		}
		copy(buf[32-size:], it.code[start:end]) // missing trailing (low-order) bytes stay zero: truncation zero-pads on the right
		var value uint256.Int
		value.SetBytes(buf[:])
		it.pos = pc + 1 + uint64(size)
		return Event{Kind: EventPush, PC: pc, Op: op, Size: size, Value: value}, true

	case op == vm.INVALID || !isKnownOpcode(op):
		it.pos++
		return Event{Kind: EventInvalid, PC: pc, Op: op}, true

	default:
		it.pos++
		return Event{Kind: EventRegular, PC: pc, Op: op}, true
	}
}

// isKnownOpcode reports whether op has an assigned name. vm.OpCode.String
// falls back to "opcode 0x%x" for byte values with no entry in its name
// table; that fallback is the only signal this package has for "unknown
// opcode" without duplicating the teacher's name table here.
func isKnownOpcode(op vm.OpCode) bool {
	return !strings.HasPrefix(op.String(), "opcode 0x")
}
