package schedule

import vm "github.com/eth2030/eth2030/core/vm"

// HandlerRef is an opaque token borrowed from an externally owned,
// process-wide handler table (spec.md 5, 6). The core never dereferences
// it; it only stores and returns the references a HandlerTable gave it.
type HandlerRef uint32

// HandlerTable is the inbound handler table of spec.md 6: a 256-entry array
// of regular-opcode handler references plus a lookup by synthetic-opcode
// id. It is supplied once, is treated as immutable for the lifetime of any
// schedule built against it, and is never mutated by this package.
type HandlerTable struct {
	regular   [256]HandlerRef
	synthetic map[SyntheticOp]HandlerRef
}

// NewHandlerTable returns a table where every regular and synthetic slot
// defaults to the identity mapping HandlerRef(tag) — usable as-is by a
// caller whose own handler array is itself indexed by the unified OpTag
// space, or overridden selectively with SetRegular/SetSynthetic.
func NewHandlerTable() *HandlerTable {
	t := &HandlerTable{synthetic: make(map[SyntheticOp]HandlerRef, synOpCount-1)}
	for i := 0; i < 256; i++ {
		t.regular[i] = HandlerRef(i)
	}
	for s := SyntheticOp(1); s < synOpCount; s++ {
		t.synthetic[s] = HandlerRef(SyntheticTag(s))
	}
	return t
}

// SetRegular overrides the handler reference for a regular opcode.
func (t *HandlerTable) SetRegular(op vm.OpCode, ref HandlerRef) { t.regular[op] = ref }

// SetSynthetic overrides the handler reference for a fused synthetic
// opcode.
func (t *HandlerTable) SetSynthetic(op SyntheticOp, ref HandlerRef) { t.synthetic[op] = ref }

// resolve maps a unified OpTag to the HandlerRef the Schedule Builder
// embeds in the corresponding handler dispatch item.
func (t *HandlerTable) resolve(tag OpTag) HandlerRef {
	if tag.IsSynthetic() {
		return t.synthetic[tag.Synthetic()]
	}
	return t.regular[tag.Regular()]
}

// itemKind is an internal shadow tag used by this package's own
// construction, validation and debug code. It never ships as part of a
// DispatchItem's bits — a handler downstream addresses metadata positionally
// by its own opcode's arity, exactly as spec.md 3 requires ("the tag is
// implicit ... must never be inferred from the bytes").
type itemKind uint8

const (
	kindHandler itemKind = iota
	kindPushInline
	kindPushPointer
	kindPCValue
	kindJumpDestMeta
	kindJumpStatic
	kindFirstBlockGas
)

// DispatchItem is the schedule's 16-byte unit. spec.md 3 specifies a packed
// 8-byte union; Go has no untagged unions without unsafe, which the teacher
// never reaches for in core/vm, so this repository spends one extra word
// per item instead (see DESIGN.md). Word0/Word1 carry variant-specific
// payload bits; which fields are meaningful is determined positionally, the
// same way a real handler would determine it from its own arity.
type DispatchItem struct {
	Word0 uint64
	Word1 uint64
}

func handlerItem(ref HandlerRef) DispatchItem { return DispatchItem{Word0: uint64(ref)} }
func pushInlineItem(v uint64) DispatchItem    { return DispatchItem{Word0: v} }
func pushPointerItem(ref ConstRef) DispatchItem {
	return DispatchItem{Word0: uint64(ref)}
}
func pcValueItem(pc uint64) DispatchItem { return DispatchItem{Word0: pc} }

func blockMetaItem(gas uint64, minStack, maxStack int32) DispatchItem {
	return DispatchItem{Word0: gas, Word1: packStackBounds(minStack, maxStack)}
}

func jumpStaticItem(position Cursor) DispatchItem { return DispatchItem{Word0: uint64(position)} }

// packStackBounds folds the signed min/max stack effect of a block into one
// word: min in the low 32 bits, max in the high 32 bits, both stored as
// 32-bit two's-complement values so negative effects survive the uint64
// round trip.
func packStackBounds(minStack, maxStack int32) uint64 {
	return uint64(uint32(minStack)) | uint64(uint32(maxStack))<<32
}

func unpackStackBounds(w uint64) (minStack, maxStack int32) {
	minStack = int32(uint32(w))
	maxStack = int32(uint32(w >> 32))
	return
}

// BlockMeta is the decoded form of a jump_dest_meta / first_block_gas item
// (spec.md 3).
type BlockMeta struct {
	Gas      uint64
	MinStack int32
	MaxStack int32
}

// BlockMeta decodes a dispatch item known (by its caller's positional
// knowledge) to hold block metadata.
func (d DispatchItem) BlockMeta() BlockMeta {
	minStack, maxStack := unpackStackBounds(d.Word1)
	return BlockMeta{Gas: d.Word0, MinStack: minStack, MaxStack: maxStack}
}

// Handler decodes a dispatch item known to be a handler slot.
func (d DispatchItem) Handler() HandlerRef { return HandlerRef(d.Word0) }

// PushInline decodes a dispatch item known to be a push_inline slot.
func (d DispatchItem) PushInline() uint64 { return d.Word0 }

// PushPointer decodes a dispatch item known to be a push_pointer slot.
func (d DispatchItem) PushPointer() ConstRef { return ConstRef(d.Word0) }

// PCValue decodes a dispatch item known to be a pc_value slot.
func (d DispatchItem) PCValue() uint64 { return d.Word0 }

// JumpStatic decodes a dispatch item known to be a jump_static slot.
func (d DispatchItem) JumpStatic() Cursor { return Cursor(d.Word0) }

// Schedule is the immutable, owning output of Build (spec.md 3, 6). It owns
// its item sequence and constant pool; a JumpTable built alongside it
// borrows positions and must not outlive it.
type Schedule struct {
	items []DispatchItem
	kinds []itemKind // parallel to items; package-internal only, see itemKind
	pool  *ConstantPool
	jumps *JumpTable

	// handlerPCs/handlerIndex/handlerStatus are parallel, one entry per
	// handler item (not per dispatch item), populated by the builder for
	// DebugView/Disassemble. They carry no executable meaning.
	handlerPCs    []uint64
	handlerIndex  []Cursor
	handlerStatus []string
}

// Items returns a read-only view of the dispatch item sequence.
func (s *Schedule) Items() []DispatchItem { return s.items }

// EntryCursor returns a cursor positioned at item zero, ready for
// execution (spec.md 6).
func (s *Schedule) EntryCursor() Cursor { return 0 }

// Pool returns the schedule's owned constant pool.
func (s *Schedule) Pool() *ConstantPool { return s.pool }

// JumpTable returns the schedule's jump table.
func (s *Schedule) JumpTable() *JumpTable { return s.jumps }

// Len reports the number of dispatch items in the schedule.
func (s *Schedule) Len() int { return len(s.items) }

// Destroy releases the item sequence and constant pool (spec.md 6). Go's
// garbage collector reclaims the backing arrays once no reference survives;
// Destroy exists so callers porting code from manually-managed targets have
// a single place to drop their own last reference, and so that using a
// Schedule after Destroy is a visible programming error rather than a
// silent reuse of freed memory.
func (s *Schedule) Destroy() {
	s.items = nil
	s.kinds = nil
	s.pool = nil
	s.jumps = nil
}
