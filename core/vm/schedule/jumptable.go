package schedule

// Cursor is a position in a built Schedule's item sequence (spec.md 3,
// "Cursor"). It is a plain index; handlers advance it themselves as they
// consume their metadata slots (spec.md 6).
type Cursor int

// JumpEntry is one (pc, position) pair of the jump table (spec.md 3, "Jump
// table").
type JumpEntry struct {
	PC       uint64
	Position Cursor
}

// JumpTable is the sorted array described in spec.md 4.6: the only
// mechanism by which a runtime-dynamic jump resolves its destination.
// Entries are strictly increasing by PC (P4) and borrow positions from the
// schedule that built them; a JumpTable must not outlive its Schedule.
type JumpTable struct {
	entries []JumpEntry
}

// newJumpTable wraps an already PC-sorted entry slice. The Schedule Builder
// is the only caller; it sorts its jumpdest list by PC just before this
// call (the static-jump resolution pass of spec.md 4.5 sorts a separate
// copy of the same list).
func newJumpTable(sorted []JumpEntry) *JumpTable {
	return &JumpTable{entries: sorted}
}

// Len reports the number of JUMPDEST entries.
func (jt *JumpTable) Len() int { return len(jt.entries) }

// Entries returns a read-only view of the sorted (pc, position) pairs.
func (jt *JumpTable) Entries() []JumpEntry { return jt.entries }

// Find resolves a dynamic jump target to a schedule cursor (spec.md 4.6).
// It makes one probe at an interpolated index first, then falls back to
// standard binary search within the narrowed bounds: O(1) when the probe
// lands on the target (as on evenly spaced PCs), O(log N) otherwise.
func (jt *JumpTable) Find(targetPC uint64) (Cursor, bool) {
	n := len(jt.entries)
	if n == 0 {
		return 0, false
	}

	lo, hi := 0, n-1
	minPC, maxPC := jt.entries[lo].PC, jt.entries[hi].PC
	if targetPC < minPC || targetPC > maxPC {
		return 0, false
	}

	if maxPC > minPC {
		estimate := int((targetPC - minPC) * uint64(n-1) / (maxPC - minPC))
		if estimate < 0 {
			estimate = 0
		}
		if estimate > n-1 {
			estimate = n - 1
		}
		switch probe := jt.entries[estimate].PC; {
		case probe == targetPC:
			return jt.entries[estimate].Position, true
		case probe < targetPC:
			lo = estimate + 1
		default:
			hi = estimate - 1
		}
	}

	for lo <= hi {
		mid := lo + (hi-lo)/2
		switch pc := jt.entries[mid].PC; {
		case pc == targetPC:
			return jt.entries[mid].Position, true
		case pc < targetPC:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}
