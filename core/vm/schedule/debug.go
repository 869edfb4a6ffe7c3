package schedule

import "fmt"

// DebugLine is one row of a Schedule's debug view (spec.md 6, "Outbound:
// debug view"): a bytecode PC paired with the schedule index it compiled to
// and a short human-readable status.
type DebugLine struct {
	PC     uint64
	Index  Cursor
	Status string
}

// DebugView walks the schedule's handler positions and renders one
// DebugLine per handler, using the pc each handler was built from. It is
// for tests and diagnostic tools, the Go-native analogue of the teacher's
// StructLogTracer dump.
func (s *Schedule) DebugView() []DebugLine {
	lines := make([]DebugLine, 0, len(s.handlerPCs))
	for i, pc := range s.handlerPCs {
		lines = append(lines, DebugLine{PC: pc, Index: s.handlerIndex[i], Status: s.handlerStatus[i]})
	}
	return lines
}

// Disassemble renders a schedule as tab-separated pc/index/kind/payload
// lines, one per item, suitable for dumping to a test failure message or a
// debug log. A metadata item shows the pc of the handler it follows; items
// before the first handler show pc 0.
func Disassemble(s *Schedule) string {
	out := ""
	h := 0
	var pc uint64
	for i, item := range s.items {
		if h < len(s.handlerIndex) && int(s.handlerIndex[h]) == i {
			pc = s.handlerPCs[h]
			h++
		}
		kind := s.kinds[i]
		out += fmt.Sprintf("%d\t%d\t%s\t%d,%d\n", pc, i, kindName(kind), item.Word0, item.Word1)
	}
	return out
}

func kindName(k itemKind) string {
	switch k {
	case kindHandler:
		return "handler"
	case kindPushInline:
		return "push_inline"
	case kindPushPointer:
		return "push_pointer"
	case kindPCValue:
		return "pc_value"
	case kindJumpDestMeta:
		return "jump_dest_meta"
	case kindJumpStatic:
		return "jump_static"
	case kindFirstBlockGas:
		return "first_block_gas"
	default:
		return "unknown"
	}
}
