package schedule

import "github.com/holiman/uint256"

// ConstRef is a stable reference into a ConstantPool. It remains valid for
// the lifetime of the schedule that owns the pool (spec.md 3, "Constant
// pool").
type ConstRef uint32

// ConstantPool is an append-only, deduplicating store of 256-bit values
// (spec.md 4.4). It uses holiman/uint256.Int as its word type, the same
// 256-bit integer the teacher's geth/types.go converts to/from math/big for
// EVM values — this package never needs the arbitrary-precision path big.Int
// offers, so the fixed-width type is the better fit.
//
// Determinism (spec.md 4.4, 9): the externally observable order of stored
// values is insertion order. The index map only accelerates dedup lookup;
// it never determines iteration or reference order.
type ConstantPool struct {
	values []uint256.Int
	index  map[uint256.Int]ConstRef
}

// NewConstantPool returns an empty pool ready to intern values.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		index: make(map[uint256.Int]ConstRef),
	}
}

// Intern returns a stable reference to value, appending it if this is the
// first time an equal value has been seen. Equality is 256-bit bitwise,
// which is exactly what uint256.Int's comparable array representation gives
// for free.
func (p *ConstantPool) Intern(value uint256.Int) ConstRef {
	if ref, ok := p.index[value]; ok {
		return ref
	}
	ref := ConstRef(len(p.values))
	p.values = append(p.values, value)
	p.index[value] = ref
	return ref
}

// Get dereferences a ConstRef previously returned by Intern. It panics on an
// out-of-range ref, which can only happen if a caller fabricates one outside
// this package — S5 guarantees every push_pointer in a built schedule
// references a live entry.
func (p *ConstantPool) Get(ref ConstRef) uint256.Int {
	return p.values[ref]
}

// Len reports how many distinct values the pool currently holds.
func (p *ConstantPool) Len() int { return len(p.values) }
