package core

import "fmt"

// Status is what a dispatch returns to the trampoline instead of unwinding
// the native stack: done, a pushed continuation, a throw, or a failure.
type Status uint8

const (
	StatusDone Status = iota
	StatusContinue
	StatusThrown
	StatusFailed
)

// Fail records a failure on the runtime and hands the trampoline the
// propagation status. Dispatchers use it as `return l.Fail(...)`.
func (l *Level) Fail(e *Error) Status {
	l.rt.fs.set(e)
	return StatusFailed
}

// Throw makes a first-class throw (BREAK, RETURN, QUIT) that bubbles until
// claimed; unclaimed throws escalate to failures at the trampoline top.
func (l *Level) Throw(label Cell, arg Cell) Status {
	label.flags |= CellFlagThrowSignal
	l.rt.throw = &ThrowState{Label: label, Arg: arg}
	return StatusThrown
}

// Trampoline drives the level stack until the entry level completes,
// polling signals between dispatches. It is the only place control moves
// between levels, and the only place a divergent panic is intercepted.
func (rt *Runtime) Trampoline(entry *Level) (result Cell, err error) {
	base := entry.prior
	manualsMark := rt.manuals.size()

	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(divergence)
			if !ok {
				panic(r)
			}
			if rt.cfg.CrashOnDivergence {
				panic(r)
			}
			rt.fs.divergent = true
			rt.unwindTo(base)
			rt.manuals.truncate(rt, manualsMark)
			err = failf(ErrKindInternal, "%s", d.msg)
		}
	}()

	for {
		// Signal poll. While any uninterruptible level is on the stack, all
		// signals (collector, halt, debug break) stay pending.
		sig := rt.sigs.Load()
		if sig != 0 && rt.uninterruptible == 0 {
			if sig&SigDebugBreak != 0 {
				rt.clearSignal(SigDebugBreak)
				if rt.debugHook != nil {
					rt.debugHook(rt.top)
				}
			}
			if sig&SigRecycle != 0 {
				rt.clearSignal(SigRecycle)
				rt.Recycle()
			}
			if sig&SigHalt != 0 {
				rt.clearSignal(SigHalt)
				rt.unwindTo(base)
				rt.manuals.truncate(rt, manualsMark)
				return Cell{}, ErrHalted
			}
		}

		l := rt.top
		if rt.cfg.CountTicks {
			rt.tickStep()
			l.tick = rt.totalTicks
		}

		var st Status
		if l.cont != nil {
			resume := l.cont
			l.cont = nil
			st = resume(l)
		} else {
			st = rt.dispatch(l)
		}

		switch st {
		case StatusContinue:
			continue

		case StatusDone:
			finished := rt.top
			rt.DropLevel(finished)
			if finished == entry {
				rt.lastResult = *finished.Out
				return *finished.Out, nil
			}

		case StatusThrown:
			// Throws bubble through levels; with no catch installed in the
			// core, an unclaimed throw escalates at the entry boundary.
			ts := rt.throw
			rt.throw = nil
			rt.unwindTo(base)
			rt.manuals.truncate(rt, manualsMark)
			return Cell{}, failf(ErrKindThrow, "unclaimed throw of %s", ts.Label.String())

		case StatusFailed:
			e := rt.fs.take()
			if e == nil {
				panic(diverge("failure status with no failure set"))
			}
			rt.unwindTo(base)
			rt.manuals.truncate(rt, manualsMark)
			return Cell{}, e

		default:
			panic(diverge(fmt.Sprintf("invalid dispatch status %d", st)))
		}
	}
}

// dispatch advances one level by one cooperative step.
func (rt *Runtime) dispatch(l *Level) Status {
	switch l.state {
	case stateStepping:
		return rt.evalStep(l)
	case stateFulfilling:
		return rt.fulfillStep(l)
	case stateDispatching:
		return rt.runDispatcher(l)
	default:
		panic(diverge("level dispatched in invalid state"))
	}
}

func (rt *Runtime) unwindTo(base *Level) {
	for rt.top != base {
		rt.DropLevel(rt.top)
	}
}

// tickStep burns one unit of the signal dose; requestSignal folds what is
// left so interrupted steps yield promptly.
func (rt *Runtime) tickStep() {
	rt.totalTicks++
	if rt.doseLeft > 0 {
		rt.doseLeft--
	}
	if rt.doseLeft == 0 {
		rt.doseLeft = rt.dose
	}
}

// runDispatcher hands the fulfilled frame to the action's dispatcher.
func (rt *Runtime) runDispatcher(l *Level) Status {
	dispatch := dispatcherOf(l.phase)
	if dispatch == nil {
		return rt.runBody(l)
	}
	return dispatch(l)
}

// runBody evaluates an interpreted action's body under a chain that puts
// the frame's variables first.
func (rt *Runtime) runBody(l *Level) Status {
	body := bodyOf(l.phase)
	if body == nil {
		return l.Fail(failf(ErrKindInternal, "action %s has no dispatcher and no body", actionName(l.phase)))
	}
	vl := rt.reifyVarList(l)
	// The body sees the frame's variables first, then whatever the action
	// closed over (the user context for now).
	chain := rt.MakeUse(vl, rt.user, UseAllWords)
	feed := rt.NewArrayFeed(body, 0, chain)
	sub := rt.PushLevel(l.Out, feed)
	sub.state = stateStepping
	l.cont = func(l *Level) Status {
		l.Out.specify(vl)
		return StatusDone
	}
	return StatusContinue
}
