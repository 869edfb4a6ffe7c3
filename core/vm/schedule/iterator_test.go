package schedule

import (
	"testing"

	vm "github.com/eth2030/eth2030/core/vm"
)

func drainEvents(t *testing.T, code []byte) []Event {
	t.Helper()
	it := NewIterator(code)
	var out []Event
	for {
		ev, ok := it.Advance()
		if !ok {
			break
		}
		out = append(out, ev)
	}
	return out
}

func TestIteratorSkipsPushImmediates(t *testing.T) {
	// PUSH1 5, PUSH1 3, ADD, STOP
	code := []byte{0x60, 0x05, 0x60, 0x03, 0x01, 0x00}
	events := drainEvents(t, code)
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	if events[0].Kind != EventPush || events[0].Value.Uint64() != 5 {
		t.Fatalf("events[0] = %+v, want EventPush(5)", events[0])
	}
	if events[1].Kind != EventPush || events[1].Value.Uint64() != 3 {
		t.Fatalf("events[1] = %+v, want EventPush(3)", events[1])
	}
	if events[2].Kind != EventRegular || events[2].Op != vm.ADD {
		t.Fatalf("events[2] = %+v, want EventRegular(ADD)", events[2])
	}
	if events[3].Kind != EventStop {
		t.Fatalf("events[3] = %+v, want EventStop", events[3])
	}
}

func TestIteratorTruncatedPushIsZeroPadded(t *testing.T) {
	code := []byte{0x7f} // PUSH32 with no immediate bytes at all
	events := drainEvents(t, code)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if !events[0].Value.IsZero() {
		t.Fatalf("events[0].Value = %v, want zero", events[0].Value)
	}
}

func TestIteratorByteInsidePushIsNotJumpdest(t *testing.T) {
	// PUSH1 0x5B, JUMPDEST -- the pushed 0x5B must not surface as an event.
	code := []byte{0x60, 0x5B, 0x5B}
	events := drainEvents(t, code)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Kind != EventPush {
		t.Fatalf("events[0].Kind = %v, want EventPush", events[0].Kind)
	}
	if events[1].Kind != EventJumpdest || events[1].PC != 2 {
		t.Fatalf("events[1] = %+v, want EventJumpdest at pc 2", events[1])
	}
}

func TestIteratorUnknownOpcodeIsInvalid(t *testing.T) {
	code := []byte{0x0c} // unassigned opcode byte
	events := drainEvents(t, code)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Kind != EventInvalid {
		t.Fatalf("events[0].Kind = %v, want EventInvalid", events[0].Kind)
	}
}
