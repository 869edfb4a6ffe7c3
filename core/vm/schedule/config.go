package schedule

// TailCallMode communicates to handlers how the dispatch chain executes
// (spec.md 6, 9). The schedule's shape does not depend on this value; it is
// advisory metadata a caller threads through to its handler table.
type TailCallMode uint8

const (
	// TailCallGuaranteed is the default for targets with guaranteed tail
	// calls (e.g. a handler table compiled to use Go's defer-free direct
	// calls with no intervening stack growth across a long dispatch chain).
	TailCallGuaranteed TailCallMode = iota
	// TailCallBestEffort marks targets without guaranteed tail calls; a
	// caller should run the dispatch chain from an outer trampoline loop.
	TailCallBestEffort
)

// SafetyLevel controls how much structural self-checking the eventual
// handler-side consumers perform (spec.md 6). Build carries it in Config
// but does not read it; the schedule it produces is the same at every level.
type SafetyLevel uint8

const (
	SafetyOff SafetyLevel = iota
	SafetyBounds
	SafetyFull
)

// FusionSet is a bitmask selecting which Pattern Recognizer fusions
// (spec.md 4.2) are active for a Build call. The zero value disables all
// fusions, which is what a classical byte-by-byte schedule (R2's baseline
// for differential testing) needs.
type FusionSet uint32

const (
	FusionPushArith FusionSet = 1 << iota // push_<op>_fusion for add/mul/sub/div/and/or/xor
	FusionPushMem                         // push_<op>_fusion for mload/mstore/mstore8
	FusionPushJump                        // push_jump_fusion / push_jumpi_fusion
	FusionIszeroJumpi
	FusionMultiPush
	FusionMultiPop
	FusionPeephole // dup2_mstore_push, dup3_add_mstore, swap1_dup2_add, push_dup3_add, push_add_dup1, mload_swap1_dup2
	FusionFunctionDispatch
	FusionCallvalueCheck
	FusionPush0Revert

	// FusionAll enables every recognized fusion rule.
	FusionAll = FusionPushArith | FusionPushMem | FusionPushJump | FusionIszeroJumpi |
		FusionMultiPush | FusionMultiPop | FusionPeephole | FusionFunctionDispatch |
		FusionCallvalueCheck | FusionPush0Revert
	// FusionNone disables the Pattern Recognizer entirely; Build then sees
	// only the Bytecode Iterator's plain event stream.
	FusionNone FusionSet = 0
)

// Has reports whether every fusion bit in want is set in s.
func (s FusionSet) Has(want FusionSet) bool { return s&want == want }

// Config is the configuration surface enumerated in spec.md 6.
type Config struct {
	// PCWidth bounds the representable program counter. A static jump
	// target wider than this is a recovered error (spec.md 7, taxonomy
	// item 3): an INVALID handler replaces the jump.
	PCWidth uint8 // bits; 0 means "use DefaultConfig's value"

	// LoopQuota is the maximum number of iterator steps Build will take
	// before failing with ErrQuotaExceeded (spec.md 5). Zero means
	// unlimited.
	LoopQuota uint64

	TailCallMode TailCallMode
	SafetyChecks SafetyLevel

	// Fusions selects which Pattern Recognizer rules are active. FusionAll
	// is the default; FusionNone degrades Build to a non-fused schedule,
	// which is what R2 compares a fused schedule against.
	Fusions FusionSet

	// Tracer receives build-time events (spec.md 6). Nil is equivalent to
	// NopTracer{} and costs nothing beyond a nil check.
	Tracer Tracer
}

// DefaultConfig matches the "native target" defaults spec.md 6 describes:
// guaranteed tail calls, full fusion set, bounds safety checks, a 64-bit PC.
func DefaultConfig() Config {
	return Config{
		PCWidth:      64,
		LoopQuota:    0,
		TailCallMode: TailCallGuaranteed,
		SafetyChecks: SafetyBounds,
		Fusions:      FusionAll,
		Tracer:       NopTracer{},
	}
}

func (c Config) tracer() Tracer {
	if c.Tracer == nil {
		return NopTracer{}
	}
	return c.Tracer
}

func (c Config) maxPC() uint64 {
	width := c.PCWidth
	if width == 0 {
		width = 64
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}
