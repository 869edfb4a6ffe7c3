package schedule

import vm "github.com/eth2030/eth2030/core/vm"

// SyntheticOp identifies a fused, multi-instruction operation introduced by
// the Pattern Recognizer (spec.md 4.2). Synthetic opcodes form a set
// disjoint from vm.OpCode; Tag unifies the two spaces into one addressable
// value, as spec.md 3 ("Opcode") requires.
type SyntheticOp uint16

const (
	SynPushAddFusion SyntheticOp = iota + 1
	SynPushMulFusion
	SynPushSubFusion
	SynPushDivFusion
	SynPushAndFusion
	SynPushOrFusion
	SynPushXorFusion
	SynPushMloadFusion
	SynPushMstoreFusion
	SynPushMstore8Fusion

	SynPushJumpFusion
	SynPushJumpiFusion
	SynIszeroJumpi

	SynMultiPush2
	SynMultiPush3
	SynMultiPop

	SynDup2MstorePush
	SynDup3AddMstore
	SynSwap1Dup2Add
	SynPushDup3Add
	SynPushAddDup1
	SynMloadSwap1Dup2
	SynFunctionDispatch
	SynCallvalueCheck
	SynPush0Revert

	synOpCount
)

var syntheticNames = map[SyntheticOp]string{
	SynPushAddFusion:     "PUSH_ADD",
	SynPushMulFusion:     "PUSH_MUL",
	SynPushSubFusion:     "PUSH_SUB",
	SynPushDivFusion:     "PUSH_DIV",
	SynPushAndFusion:     "PUSH_AND",
	SynPushOrFusion:      "PUSH_OR",
	SynPushXorFusion:     "PUSH_XOR",
	SynPushMloadFusion:   "PUSH_MLOAD",
	SynPushMstoreFusion:  "PUSH_MSTORE",
	SynPushMstore8Fusion: "PUSH_MSTORE8",
	SynPushJumpFusion:    "PUSH_JUMP",
	SynPushJumpiFusion:   "PUSH_JUMPI",
	SynIszeroJumpi:       "ISZERO_JUMPI",
	SynMultiPush2:        "MULTI_PUSH_2",
	SynMultiPush3:        "MULTI_PUSH_3",
	SynMultiPop:          "MULTI_POP",
	SynDup2MstorePush:    "DUP2_MSTORE_PUSH",
	SynDup3AddMstore:     "DUP3_ADD_MSTORE",
	SynSwap1Dup2Add:      "SWAP1_DUP2_ADD",
	SynPushDup3Add:       "PUSH_DUP3_ADD",
	SynPushAddDup1:       "PUSH_ADD_DUP1",
	SynMloadSwap1Dup2:    "MLOAD_SWAP1_DUP2",
	SynFunctionDispatch:  "FUNCTION_DISPATCH",
	SynCallvalueCheck:    "CALLVALUE_CHECK",
	SynPush0Revert:       "PUSH0_REVERT",
}

func (s SyntheticOp) String() string {
	if name, ok := syntheticNames[s]; ok {
		return name
	}
	return "SYNTHETIC_UNKNOWN"
}

// syntheticArity is the number of metadata slots immediately following a
// synthetic handler (spec.md 4.5's per-event emission table). The builder
// (builder.go) consults this to know how many items to append after the
// handler, and it is also what S1 validates for synthetic handlers.
var syntheticArity = map[SyntheticOp]int{
	SynPushAddFusion:     1,
	SynPushMulFusion:     1,
	SynPushSubFusion:     1,
	SynPushDivFusion:     1,
	SynPushAndFusion:     1,
	SynPushOrFusion:      1,
	SynPushXorFusion:     1,
	SynPushMloadFusion:   1,
	SynPushMstoreFusion:  1,
	SynPushMstore8Fusion: 1,
	SynPushJumpFusion:    1,
	SynPushJumpiFusion:   1,
	SynIszeroJumpi:       1,
	SynMultiPush2:        2,
	SynMultiPush3:        3,
	SynMultiPop:          0,
	SynDup2MstorePush:    1,
	SynDup3AddMstore:     0,
	SynSwap1Dup2Add:      0,
	SynPushDup3Add:       1,
	SynPushAddDup1:       1,
	SynMloadSwap1Dup2:    0,
	SynFunctionDispatch:  2,
	SynCallvalueCheck:    0,
	SynPush0Revert:       0,
}

// Arity returns the number of metadata slots that must follow this
// synthetic opcode's handler in the schedule.
func (s SyntheticOp) Arity() int { return syntheticArity[s] }

// OpTag unifies vm.OpCode and SyntheticOp into one addressable space, per
// spec.md 3 ("the two sets are addressable by a single unified tag").
// Regular opcodes occupy [0,256); synthetic opcodes occupy [256, 256+N).
type OpTag uint16

const syntheticTagBase OpTag = 0x100

// RegularTag returns the unified tag for a standard EVM opcode.
func RegularTag(op vm.OpCode) OpTag { return OpTag(op) }

// SyntheticTag returns the unified tag for a fused synthetic opcode.
func SyntheticTag(s SyntheticOp) OpTag { return syntheticTagBase + OpTag(s) }

// IsSynthetic reports whether a unified tag addresses the synthetic space.
func (t OpTag) IsSynthetic() bool { return t >= syntheticTagBase }

// Regular extracts the vm.OpCode from a tag known not to be synthetic.
func (t OpTag) Regular() vm.OpCode { return vm.OpCode(t) }

// Synthetic extracts the SyntheticOp from a tag known to be synthetic.
func (t OpTag) Synthetic() SyntheticOp { return SyntheticOp(t - syntheticTagBase) }

func (t OpTag) String() string {
	if t.IsSynthetic() {
		return t.Synthetic().String()
	}
	return t.Regular().String()
}
