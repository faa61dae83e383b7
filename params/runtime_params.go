// Package params holds the tuning constants of the runtime core. Everything
// here is a default; the host may override through core.Config.
package params

// Stub geometry. A stub is modeled on an 8-machine-word heap record; series
// whose content fits the inline cell never get a dynamic buffer.
const (
	StubWords   = 8 // conceptual record size, in machine words
	InlineCells = 1 // cells representable without a dynamic buffer
)

// Size classes for pooled buffer allocation, in bytes. Requests above the
// largest class fall through to the general allocator. The table must be
// ascending; the class map in core is precomputed from it at init.
var PoolClassBytes = []int{
	32, 64, 96, 128, 192, 256, 384, 512, 768, 1024, 1536, 2048,
}

// StubPoolBatch is how many stubs a stub pool carves per refill.
const StubPoolBatch = 256

// DefaultBallast is the number of allocated bytes between recycle signals.
// Crossing zero raises the signal; it never runs the collector inline.
const DefaultBallast = 1 << 21

// TickDose is the countdown the tick accounting runs in when tick counting
// is enabled; signal delivery folds the in-flight dose into the total. The
// trampoline polls signals before every dispatch, independent of the dose.
const TickDose = 1024

// DefaultGuardCapacity and DefaultManualsCapacity are nominal sizes for the
// transient protection registries. The core's guard and manuals stacks grow
// on demand and do not read them.
const (
	DefaultGuardCapacity   = 64
	DefaultManualsCapacity = 128
)

// UseCacheSize bounds the dedup table for virtual-bind patches, keyed on
// (parent, target, mode).
const UseCacheSize = 512
