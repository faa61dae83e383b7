package core

import (
	"fmt"

	"github.com/go-stack/stack"

	"github.com/renlabs/go-ren/log"
	"github.com/renlabs/go-ren/params"
)

// Config carries the host-tunable knobs, the runtime analogue of the DEBUG_*
// compile switches.
type Config struct {
	// Ballast is how many allocated bytes pass between recycle signals.
	Ballast int64

	// PoolClassBytes overrides the size-class table.
	PoolClassBytes []int

	// PoisonTails fills freed buffers and the cell past an array's used
	// region with poison so stale pointers trip in debug.
	PoisonTails bool

	// TrackOrigins records the allocation call site on every stub.
	TrackOrigins bool

	// CountTicks maintains the per-level monotonic tick and the signal
	// dose accounting.
	CountTicks bool

	// CrashOnDivergence re-raises divergent panics instead of converting
	// them to errors at the trampoline top.
	CrashOnDivergence bool

	Logger log.Logger
}

// DefaultConfig is the debug-leaning setup tests run under.
func DefaultConfig() Config {
	return Config{
		Ballast:        params.DefaultBallast,
		PoolClassBytes: params.PoolClassBytes,
		PoisonTails:    true,
		TrackOrigins:   false,
		CountTicks:     true,
	}
}

// callOrigin captures the allocation site, skipping the allocator frames.
func callOrigin() string {
	return fmt.Sprintf("%+v", stack.Caller(3))
}
