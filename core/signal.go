package core

// Signal bits. The host may OR them in asynchronously; the trampoline is
// the only consumer and polls between dispatches.
const (
	SigRecycle uint32 = 1 << iota
	SigHalt
	SigDebugBreak
)

// orSignals is the single atomic OR the host contract permits from outside.
func (rt *Runtime) orSignals(bits uint32) {
	for {
		cur := rt.sigs.Load()
		if rt.sigs.CompareAndSwap(cur, cur|bits) {
			return
		}
	}
}

// requestSignal folds the in-flight tick dose into the total so the running
// evaluator step sees a countdown of zero and yields at its next boundary.
func (rt *Runtime) requestSignal(bits uint32) {
	rt.orSignals(bits)
	if rt.cfg.CountTicks {
		rt.totalTicks += rt.dose - rt.doseLeft
		rt.doseLeft = 0
	}
}

// RequestHalt asks the trampoline to unwind to the nearest non-masked
// boundary. Safe to call from a signal handler or another goroutine.
func (rt *Runtime) RequestHalt() { rt.orSignals(SigHalt) }

// RequestGC raises the recycle signal; collection happens at the next
// trampoline poll.
func (rt *Runtime) RequestGC() { rt.orSignals(SigRecycle) }

// RequestDebugBreak asks for the debugger hook at the next poll.
func (rt *Runtime) RequestDebugBreak() { rt.orSignals(SigDebugBreak) }

func (rt *Runtime) takeSignals() uint32 {
	for {
		cur := rt.sigs.Load()
		if cur == 0 {
			return 0
		}
		if rt.sigs.CompareAndSwap(cur, 0) {
			return cur
		}
	}
}

// clearSignal drops specific bits without consuming the rest.
func (rt *Runtime) clearSignal(bits uint32) {
	for {
		cur := rt.sigs.Load()
		if rt.sigs.CompareAndSwap(cur, cur&^bits) {
			return
		}
	}
}
