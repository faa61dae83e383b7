package core

// Level is the evaluator's per-call state record. Levels form a singly
// linked stack rooted at the runtime's top; the bottom level is a sentinel
// that never executes code. Argument cells live in the level's own chunk
// until the frame is reified into a varlist (needed when user code captures
// the frame or a relative cell must be specified).

type LevelFlag uint16

const (
	// LevelFlagUninterruptible masks halt and recycle handling for the
	// duration of the level; critical sections in natives use it.
	LevelFlagUninterruptible LevelFlag = 1 << iota

	// levelFlagDoingPickups marks the second fulfillment pass over
	// out-of-order path refinements. GC traces every arg slot while set.
	levelFlagDoingPickups

	// levelFlagDeferPending means a filled arg is claimed as the left
	// operand of a deferring infix op sighted in lookahead; the flag is set
	// while that op runs and cleared by the continuation that resumes
	// fulfillment.
	levelFlagDeferPending

	// levelFlagReevaluate asks the next step to consume the spare cell
	// instead of fetching from the feed.
	levelFlagReevaluate

	// levelFlagRunning marks a reified varlist's level as still on the
	// stack.
	levelFlagRunning

	// levelFlagStepOnly completes the stepping level after one full
	// expression instead of running the feed dry.
	levelFlagStepOnly

	// levelFlagFulfillingArg marks a stepping level whose output is an
	// argument being gathered; deferring infix ops are left in the feed
	// for the gathering call to apply.
	levelFlagFulfillingArg

	// levelFlagNoLookahead suppresses all infix consumption; tight-class
	// parameters evaluate exactly one unit.
	levelFlagNoLookahead
)

// levelState is the trampoline's resume point for the level.
type levelState uint8

const (
	stateInitial levelState = iota
	stateStepping             // evaluator level: one value per dispatch
	stateFulfilling           // action level: gathering one arg per dispatch
	stateDispatching          // action level: frame full, run the dispatcher
	stateSubResult            // waiting on a sub-level's output
)

type Level struct {
	rt    *Runtime
	prior *Level

	flags LevelFlag
	state levelState

	// Out receives the result. The spare is scratch: endlike-terminated by
	// construction so an unset spare reads as exhausted.
	Out   *Cell
	spare Cell

	feed   *Feed
	dsBase int

	// current value being processed and its cached lookup
	current Cell
	gotten  *Cell

	// action invocation state
	original *Stub // the action's identity as invoked
	phase    *Stub // current view of a composed action
	label    *Stub // word symbol it was invoked through, for errors

	varlist *Stub  // reified frame, nil until needed
	args    []Cell // chunk storage before reification; [0] is the rootvar

	param    int         // cursor into the phase's param slots (1-based)
	arg      int         // highest arg slot filled so far
	special  int         // cursor into the exemplar for specializations
	refine   RefineState // mode of the slot being fulfilled
	deferred *Cell       // arg cell provisionally claimed by deferred infix
	pickups  []int       // param indices queued for the second pass

	exemplar *Stub // specialization frame consulted before the callsite

	// refinement bookkeeping for the current invocation
	requested    []*Stub // path-supplied refinement symbols, path order
	reqIdx       int     // next requested refinement to honor in-order
	ownerIdx     int     // slot index of the refinement owning upcoming args
	firstOfRef   bool    // next arg is the owner's first (revocation point)
	pickupTarget int     // refinement slot the pickup pass is serving

	// refStates records the refine sentinel each slot ended in, parallel to
	// the arg slots.
	refStates []RefineState

	// cont resumes the level after a sub-level completes.
	cont func(*Level) Status

	tick uint64
}

// RefineState is the per-slot fulfillment mode. Identity encodes behavior;
// the truthy states are the ones that type-check their argument.
type RefineState uint8

const (
	refineSkip     RefineState = iota // slot not applicable this pass
	refineUnused                      // refinement not requested
	refineRevoked                     // was active, first arg came back none
	refineActive                      // refinement taken, args revokable
	refineArg                         // ordinary argument
	refineLookback                    // first arg taken from the left
)

func (r RefineState) typeChecks() bool {
	return r == refineActive || r == refineArg || r == refineLookback
}

func (r RefineState) String() string {
	return [...]string{"skip", "unused", "revoked", "active", "arg", "lookback"}[r]
}

// PushLevel links a new level running the given feed. The feed's backing
// array gets a transient hold unless already read-only.
func (rt *Runtime) PushLevel(out *Cell, feed *Feed) *Level {
	l := &Level{
		rt:     rt,
		prior:  rt.top,
		Out:    out,
		feed:   feed,
		dsBase: len(rt.ds),
		state:  stateStepping,
	}
	l.spare.poison() // endlike until someone writes it
	feed.acquireHold()
	rt.top = l
	return l
}

// DropLevel unlinks, releases holds, restores the data stack, and retires a
// reified varlist from "running".
func (rt *Runtime) DropLevel(l *Level) {
	if debugChecks && rt.top != l {
		panic(diverge("levels dropped out of order"))
	}
	l.feed.releaseHold()
	rt.ds = rt.ds[:l.dsBase]
	if l.flags&LevelFlagUninterruptible != 0 {
		rt.uninterruptible--
	}
	if l.varlist != nil {
		l.flags &^= levelFlagRunning
		l.varlist.info = 0 // no longer running
	}
	rt.top = l.prior
}

// pushActionLevel arranges an action invocation as a sub-level sharing the
// caller's feed.
func (rt *Runtime) pushActionLevel(out *Cell, feed *Feed, details *Stub, label *Stub) *Level {
	l := rt.PushLevel(out, feed)
	l.state = stateFulfilling
	l.original = details
	l.phase = details
	l.label = label
	l.special = 0
	if details.link != nil && details.link.flavor == FlavorVarList {
		l.exemplar = details.link
	}
	n := paramCount(details)
	l.args = rt.pools.allocCells(n + 1, false)
	InitAction(&l.args[0], details)
	for i := 1; i <= n; i++ {
		l.args[i].poison() // in-progress or trash until the cursor passes
	}
	l.param = 1
	l.arg = 0
	l.refine = refineArg
	l.refStates = make([]RefineState, n+1)
	return l
}

// argSlot addresses the n'th argument (1-based, parallel to params),
// regardless of whether the frame has been reified.
func (l *Level) argSlot(n int) *Cell {
	if l.varlist != nil {
		return varAt(l.varlist, n)
	}
	return &l.args[n]
}

// rootvar is the archetype slot of the frame.
func (l *Level) rootvar() *Cell {
	if l.varlist != nil {
		return l.varlist.cellAt(0)
	}
	return &l.args[0]
}

// Spare exposes the scratch cell for re-evaluation requests.
func (l *Level) Spare() *Cell { return &l.spare }

// Arg fetches a fulfilled argument by 1-based index for dispatchers.
func (l *Level) Arg(n int) *Cell {
	if debugChecks && (n < 1 || n > paramCount(l.phase)) {
		panic(diverge("argument index out of range"))
	}
	return l.argSlot(n)
}

// RefineStateOf reports the fulfillment mode a slot ended in.
func (l *Level) RefineStateOf(n int) RefineState {
	if debugChecks && (n < 1 || n >= len(l.refStates)) {
		panic(diverge("refine state index out of range"))
	}
	return l.refStates[n]
}

func setRefState(l *Level, n int, st RefineState) {
	l.refStates[n] = st
}

// SetUninterruptible masks halt/recycle until the level drops, including
// across continuations it pushes.
func (l *Level) SetUninterruptible() {
	if l.flags&LevelFlagUninterruptible != 0 {
		return
	}
	l.flags |= LevelFlagUninterruptible
	l.rt.uninterruptible++
}

// reifyVarList moves the chunk args into a managed varlist so the frame can
// outlive the invocation or anchor relative cells.
func (rt *Runtime) reifyVarList(l *Level) *Stub {
	if l.varlist != nil {
		return l.varlist
	}
	n := paramCount(l.phase)
	keys := make([]*Stub, n)
	for i := 1; i <= n; i++ {
		p, _ := paramAt(l.phase, i)
		keys[i-1] = p.Name
	}
	vl := rt.newVarList(StubFlagManaged, keys...)
	for i := 1; i <= n; i++ {
		*varAt(vl, i) = l.args[i]
	}
	initFrame(vl.cellAt(0), vl, l.phase)
	vl.info = 1 // running
	l.flags |= levelFlagRunning
	rt.pools.freeCells(l.args)
	l.args = nil
	l.varlist = vl
	return vl
}

// findFrameKey resolves a symbol against the phase's parameter names.
func (rt *Runtime) findFrameKey(l *Level, sym *Stub) int {
	n := paramCount(l.phase)
	for i := 1; i <= n; i++ {
		p, _ := paramAt(l.phase, i)
		if sameSpelling(p.Name, sym) {
			return i
		}
	}
	return 0
}

// levelForPhase finds the innermost running level whose phase matches, for
// resolving relative cells.
func (rt *Runtime) levelForPhase(details *Stub) *Level {
	for l := rt.top; l != nil; l = l.prior {
		if l.phase == details || l.original == details {
			return l
		}
	}
	return nil
}

// levelDepth is how many levels sit above the sentinel.
func (rt *Runtime) levelDepth() int {
	n := 0
	for l := rt.top; l != nil && l.prior != nil; l = l.prior {
		n++
	}
	return n
}
