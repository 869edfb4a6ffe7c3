package schedule

// Tracer is the optional inbound sink of spec.md 6: a caller supplies one
// to observe the build, or leaves it nil (equivalent to NopTracer) to pay
// nothing for the feature. This mirrors the split the teacher draws between
// its EVMLogger interface and a concrete no-op/struct-log implementation,
// adapted here to the six build-time events this package actually produces.
type Tracer interface {
	ScheduleBuildStart(codeLen int)
	ScheduleBuildComplete(items, internedConstants int)
	FusionDetected(pc uint64, kind FusedKind, length int)
	StaticJumpResolved(fromPC, toPC uint64)
	InvalidStaticJump(fromPC, toPC uint64)
	JumpTableCreated(entries int)
}

// NopTracer discards every event. Its methods are empty and trivially
// inlined, so attaching it costs nothing beyond the interface dispatch
// Config.tracer already pays when no tracer is configured.
type NopTracer struct{}

func (NopTracer) ScheduleBuildStart(int)               {}
func (NopTracer) ScheduleBuildComplete(int, int)       {}
func (NopTracer) FusionDetected(uint64, FusedKind, int) {}
func (NopTracer) StaticJumpResolved(uint64, uint64)    {}
func (NopTracer) InvalidStaticJump(uint64, uint64)     {}
func (NopTracer) JumpTableCreated(int)                 {}
