package schedule

import (
	"sort"

	vm "github.com/eth2030/eth2030/core/vm"
	"github.com/eth2030/eth2030/log"
	"github.com/eth2030/eth2030/metrics"
	"github.com/holiman/uint256"
)

var buildLog = log.Default().Module("schedule")

// pendingJump is an unresolved-jump record (spec.md 3): a placeholder slot
// waiting to learn the schedule position of a JUMPDEST it targets.
type pendingJump struct {
	handlerIndex int         // position of the synthetic/jump handler itself
	index        int         // position of the jump_static placeholder slot, always the last of syn's metadata slots
	syn          SyntheticOp // identifies how many metadata slots (Arity()) follow the handler
	fromPC       uint64      // pc of the jump instruction, for tracer/log context
	target       uint256.Int // full-width jump target; only narrowed to uint64 once known in range
	resolved     bool        // set by the range-check phase when substituted in place
}

// loggedTarget narrows target for tracer/log calls, which only carry a
// uint64. A target that doesn't fit one is already headed for INVALID
// substitution regardless of its exact value, so the sentinel only needs to
// be visibly "out of range", not numerically exact.
func (pj pendingJump) loggedTarget() uint64 {
	if pj.target.IsUint64() {
		return pj.target.Uint64()
	}
	return ^uint64(0)
}

// builder accumulates a schedule during Build. It is discarded once Build
// returns; only the immutable *Schedule survives.
type builder struct {
	code    []byte
	cfg     Config
	tracer  Tracer
	tbl     *HandlerTable
	items   []DispatchItem
	kinds   []itemKind
	pool    *ConstantPool
	pending []pendingJump
	jumps   []JumpEntry
	fusions int

	handlerPCs    []uint64
	handlerIndex  []Cursor
	handlerStatus []string
}

// Build runs the full pipeline of spec.md 2 over code: iterate, recognize
// fusions, analyze blocks, intern constants, emit dispatch items, resolve
// static jumps, and build the jump table. It never panics on malformed
// input; every failure mode in spec.md 7 surfaces as a returned error.
func Build(code []byte, handlers *HandlerTable, cfg Config) (*Schedule, error) {
	if handlers == nil {
		handlers = NewHandlerTable()
	}
	tracer := cfg.tracer()
	tracer.ScheduleBuildStart(len(code))

	timer := metrics.NewTimer(metrics.DefaultRegistry.Histogram("schedule.build_duration"))
	metrics.DefaultRegistry.Counter("schedule.builds").Inc()
	metrics.DefaultRegistry.Counter("schedule.bytes_processed").Add(int64(len(code)))
	defer timer.Stop()

	b := &builder{
		code:   code,
		cfg:    cfg,
		tracer: tracer,
		tbl:    handlers,
		pool:   NewConstantPool(),
	}

	if err := b.run(); err != nil {
		buildLog.Error("schedule build failed", "error", err, "bytecode_len", len(code))
		return nil, err
	}

	sched := &Schedule{
		items:         b.items,
		kinds:         b.kinds,
		pool:          b.pool,
		handlerPCs:    b.handlerPCs,
		handlerIndex:  b.handlerIndex,
		handlerStatus: b.handlerStatus,
	}
	sort.Slice(b.jumps, func(i, j int) bool { return b.jumps[i].PC < b.jumps[j].PC })
	sched.jumps = newJumpTable(b.jumps)

	tracer.JumpTableCreated(len(b.jumps))
	tracer.ScheduleBuildComplete(len(sched.items), b.pool.Len())
	metrics.DefaultRegistry.Counter("schedule.fusions").Add(int64(b.fusionCount()))
	buildLog.Debug("schedule build complete", "items", len(sched.items), "jumpdests", len(b.jumps), "constants", b.pool.Len())

	return sched, nil
}

func (b *builder) run() error {
	// First-block gas (spec.md 4.5): invoke the block analyzer on the
	// prefix before the event loop starts.
	prefix := AnalyzeBlock(b.code, 0)
	if prefix.Gas != 0 || prefix.MinStack != 0 || prefix.MaxStack != 0 {
		b.append(blockMetaItem(prefix.Gas, prefix.MinStack, prefix.MaxStack), kindFirstBlockGas)
	}

	rec := NewRecognizer(b.code, b.cfg.Fusions)
	var steps uint64
	for {
		ev, ok := rec.Advance()
		if !ok {
			break
		}
		steps += uint64(fusionLength(ev))
		if b.cfg.LoopQuota != 0 && steps > b.cfg.LoopQuota {
			return quotaError(steps, b.cfg.LoopQuota)
		}
		if ev.Kind >= FEPushOpFusion {
			b.fusions++
			b.tracer.FusionDetected(ev.PC, ev.Kind, fusionLength(ev))
		}
		b.emit(ev)
	}

	// Terminator (S2): the tail is always two consecutive STOP handlers,
	// guaranteeing deterministic fall-through even if the bytecode never
	// contained a STOP of its own.
	b.appendHandler(RegularTag(vm.STOP), uint64(len(b.code)), "sentinel")
	b.appendHandler(RegularTag(vm.STOP), uint64(len(b.code)), "sentinel")

	return b.resolveJumps()
}

// fusionLength reports how many raw iterator events ev was built from: a
// fusion's source-window length, or 1 for a pass-through event. It feeds
// both the LoopQuota step count and the tracer's fusion_detected event.
func fusionLength(ev FusedEvent) int {
	switch ev.Kind {
	case FEMultiPop:
		return ev.Count
	case FEMultiPush:
		return len(ev.Values)
	case FEFunctionDispatch:
		return 4
	case FEIszeroJumpi, FEDup2MstorePush, FEDup3AddMstore, FESwap1Dup2Add,
		FEPushDup3Add, FEPushAddDup1, FEMloadSwap1Dup2:
		return 3
	case FEPushOpFusion, FEPushJumpFusion, FEPushJumpiFusion, FECallvalueCheck, FEPush0Revert:
		return 2
	default:
		return 1
	}
}

func (b *builder) emit(ev FusedEvent) {
	switch ev.Kind {
	case FERegular:
		b.appendHandler(RegularTag(ev.Op), ev.PC, "ok")
		if ev.Op == vm.PC {
			b.append(pcValueItem(ev.PC), kindPCValue)
		}
	case FEPush:
		b.appendHandler(RegularTag(ev.Op), ev.PC, "ok")
		b.appendPushValue(ev.Value)
	case FEJumpdest:
		idx := b.appendHandler(RegularTag(vm.JUMPDEST), ev.PC, "jumpdest")
		meta := AnalyzeBlock(b.code, ev.PC+1)
		b.append(blockMetaItem(meta.Gas, meta.MinStack, meta.MaxStack), kindJumpDestMeta)
		b.jumps = append(b.jumps, JumpEntry{PC: ev.PC, Position: Cursor(idx)})
	case FEStop:
		b.appendHandler(RegularTag(vm.STOP), ev.PC, "ok")
	case FEInvalid:
		b.appendHandler(RegularTag(vm.INVALID), ev.PC, "unknown opcode")

	case FEPushOpFusion:
		b.appendHandler(SyntheticTag(pushFusionSynthetic[ev.Op]), ev.PC, "fused")
		b.appendPushValue(ev.Value)

	case FEPushJumpFusion:
		b.emitStaticJump(SynPushJumpFusion, ev.PC, ev.Target)
	case FEPushJumpiFusion:
		b.emitStaticJump(SynPushJumpiFusion, ev.PC, ev.Target)
	case FEIszeroJumpi:
		b.emitStaticJump(SynIszeroJumpi, ev.PC, ev.Target)

	case FEMultiPush:
		syn := SynMultiPush2
		if len(ev.Values) == 3 {
			syn = SynMultiPush3
		}
		b.appendHandler(SyntheticTag(syn), ev.PC, "fused")
		for _, v := range ev.Values {
			b.appendPushValue(v)
		}
	case FEMultiPop:
		b.appendHandler(SyntheticTag(SynMultiPop), ev.PC, "fused")
	case FEDup2MstorePush:
		b.appendHandler(SyntheticTag(SynDup2MstorePush), ev.PC, "fused")
		b.appendPushValue(ev.Value)
	case FEDup3AddMstore:
		b.appendHandler(SyntheticTag(SynDup3AddMstore), ev.PC, "fused")
	case FESwap1Dup2Add:
		b.appendHandler(SyntheticTag(SynSwap1Dup2Add), ev.PC, "fused")
	case FEPushDup3Add:
		b.appendHandler(SyntheticTag(SynPushDup3Add), ev.PC, "fused")
		b.appendPushValue(ev.Value)
	case FEPushAddDup1:
		b.appendHandler(SyntheticTag(SynPushAddDup1), ev.PC, "fused")
		b.appendPushValue(ev.Value)
	case FEMloadSwap1Dup2:
		b.appendHandler(SyntheticTag(SynMloadSwap1Dup2), ev.PC, "fused")
	case FEFunctionDispatch:
		b.appendHandler(SyntheticTag(SynFunctionDispatch), ev.PC, "fused")
		b.append(pushInlineItem(ev.Selector), kindPushInline)
		b.pending = append(b.pending, pendingJump{
			handlerIndex: len(b.items) - 2,
			index:        len(b.items),
			syn:          SynFunctionDispatch,
			fromPC:       ev.PC,
			target:       ev.Target,
		})
		b.append(jumpStaticItem(0), kindJumpStatic)
	case FECallvalueCheck:
		b.appendHandler(SyntheticTag(SynCallvalueCheck), ev.PC, "fused")
	case FEPush0Revert:
		b.appendHandler(SyntheticTag(SynPush0Revert), ev.PC, "fused")
	}
}

// emitStaticJump appends a fused jump handler plus a placeholder
// jump_static slot, and records the (slot, target) pair for the resolution
// pass (spec.md 4.5, 9).
func (b *builder) emitStaticJump(syn SyntheticOp, fromPC uint64, target uint256.Int) {
	handlerIdx := b.appendHandler(SyntheticTag(syn), fromPC, "fused")
	placeholderIdx := len(b.items)
	b.append(jumpStaticItem(0), kindJumpStatic)
	b.pending = append(b.pending, pendingJump{
		handlerIndex: handlerIdx,
		index:        placeholderIdx,
		syn:          syn,
		fromPC:       fromPC,
		target:       target,
	})
}

func (b *builder) appendPushValue(v uint256.Int) {
	if v.IsUint64() {
		b.append(pushInlineItem(v.Uint64()), kindPushInline)
		return
	}
	ref := b.pool.Intern(v)
	b.append(pushPointerItem(ref), kindPushPointer)
}

func (b *builder) append(item DispatchItem, kind itemKind) int {
	b.items = append(b.items, item)
	b.kinds = append(b.kinds, kind)
	return len(b.items) - 1
}

func (b *builder) appendHandler(tag OpTag, pc uint64, status string) int {
	idx := b.append(handlerItem(b.tbl.resolve(tag)), kindHandler)
	b.handlerPCs = append(b.handlerPCs, pc)
	b.handlerIndex = append(b.handlerIndex, Cursor(idx))
	b.handlerStatus = append(b.handlerStatus, status)
	return idx
}

func (b *builder) fusionCount() int { return b.fusions }

// resolveJumps performs the single-pass static-jump resolution of spec.md
// 4.5: a range-check/substitution phase first (recovered failures shrink
// the schedule in place), then a PC binary-search phase over the
// now-stable jumpdest list (unrecovered failures abort the whole build).
func (b *builder) resolveJumps() error {
	maxPC := b.cfg.maxPC()

	for i := range b.pending {
		pj := &b.pending[i]
		target, fits := pj.target.Uint64(), pj.target.IsUint64()
		if fits && target <= maxPC {
			continue
		}

		// Out of range (or too wide to ever be a valid pc at all): the
		// handler becomes INVALID (arity 0), so every one of syn's
		// metadata slots is now orphaned, not just the jump_static
		// placeholder. Remove them all, highest index first, so each
		// removal's own index is still valid when it runs.
		b.items[pj.handlerIndex] = handlerItem(b.tbl.resolve(RegularTag(vm.INVALID)))
		b.kinds[pj.handlerIndex] = kindHandler
		for k := pj.syn.Arity(); k >= 1; k-- {
			removeIdx := pj.handlerIndex + k
			b.removeItemAt(removeIdx)
			for j := range b.jumps {
				if int(b.jumps[j].Position) > removeIdx {
					b.jumps[j].Position--
				}
			}
			for j := i + 1; j < len(b.pending); j++ {
				if b.pending[j].index > removeIdx {
					b.pending[j].index--
				}
				if b.pending[j].handlerIndex > removeIdx {
					b.pending[j].handlerIndex--
				}
			}
		}
		b.tracer.InvalidStaticJump(pj.fromPC, pj.loggedTarget())
		buildLog.Warn("static jump target exceeds addressable pc range", "from_pc", pj.fromPC, "to_pc", pj.loggedTarget())
		pj.resolved = true
	}

	sorted := append([]JumpEntry(nil), b.jumps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PC < sorted[j].PC })

	for _, pj := range b.pending {
		if pj.resolved {
			continue
		}
		target := pj.target.Uint64() // safe: the range check above already passed
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].PC >= target })
		if i >= len(sorted) || sorted[i].PC != target {
			return invalidStaticJumpError(pj.fromPC, target)
		}
		b.items[pj.index] = jumpStaticItem(sorted[i].Position)
		b.tracer.StaticJumpResolved(pj.fromPC, target)
	}

	return nil
}

// removeItemAt deletes the dispatch item at idx, shifting every later item
// left by one. It is only ever called on an orphaned metadata slot left
// behind when its jump's handler was substituted with an INVALID handler
// (spec.md 7, taxonomy item 3) — a rare recovered-error path, not the hot
// construction loop.
func (b *builder) removeItemAt(idx int) {
	b.items = append(b.items[:idx], b.items[idx+1:]...)
	b.kinds = append(b.kinds[:idx], b.kinds[idx+1:]...)
	for i := range b.handlerIndex {
		if int(b.handlerIndex[i]) > idx {
			b.handlerIndex[i]--
		}
	}
}
