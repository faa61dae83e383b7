package core

import "golang.org/x/exp/slices"

// Argument fulfillment. Each trampoline dispatch of a fulfilling level
// settles one parameter slot: refinements resolve against the path-supplied
// request list, ordinary args evaluate one expression from the shared feed,
// and specializations short-circuit the callsite. Out-of-order refinement
// requests queue a second pass (pickups); while that pass runs, the GC
// traces every arg slot instead of stopping at the cursor.

func isRefinementParam(details *Stub, n int) bool {
	p, _ := paramAt(details, n)
	return p.Class == ParamRefinement
}

func (rt *Runtime) fulfillStep(l *Level) Status {
	n := paramCount(l.phase)

	if l.flags&levelFlagDoingPickups != 0 {
		if l.param > n || (isRefinementParam(l.phase, l.param) && l.param != l.pickupTarget) {
			if len(l.pickups) > 0 {
				l.pickupTarget = l.pickups[0]
				l.pickups = l.pickups[1:]
				l.param = l.pickupTarget
			} else {
				l.flags &^= levelFlagDoingPickups
				return rt.beginDispatch(l)
			}
		}
	} else if l.param > n {
		if len(l.pickups) > 0 {
			// Honor queued refinements in path order, not parameter order;
			// the callsite expressions were laid down in path order.
			slices.SortFunc(l.pickups, func(a, b int) int {
				pa, _ := paramAt(l.phase, a)
				pb, _ := paramAt(l.phase, b)
				return l.requestedAt(pa.Name) - l.requestedAt(pb.Name)
			})
			l.flags |= levelFlagDoingPickups
			l.pickupTarget = l.pickups[0]
			l.pickups = l.pickups[1:]
			l.param = l.pickupTarget
			return StatusContinue
		}
		return rt.beginDispatch(l)
	}

	if isRefinementParam(l.phase, l.param) {
		return rt.fulfillRefinement(l)
	}
	return rt.fulfillArg(l)
}

func (rt *Runtime) beginDispatch(l *Level) Status {
	if l.reqIdx < len(l.requested) {
		// Something in the path was never honored; name a refinement that
		// matches no parameter when there is one.
		for _, sym := range l.requested {
			if rt.findFrameKey(l, sym) == 0 {
				return l.Fail(failf(ErrKindTypeMismatch, "%s has no refinement %s",
					actionName(l.original), symbolText(sym)))
			}
		}
		return l.Fail(failf(ErrKindTypeMismatch, "%s: refinement path not honored",
			actionName(l.original)))
	}
	l.state = stateDispatching
	return StatusContinue
}

// requestedAt finds the symbol's position in the path-order request list,
// -1 when absent.
func (l *Level) requestedAt(sym *Stub) int {
	for i, r := range l.requested {
		if sameSpelling(r, sym) {
			return i
		}
	}
	return -1
}

func (rt *Runtime) fulfillRefinement(l *Level) Status {
	idx := l.param
	p, _ := paramAt(l.phase, idx)
	slot := l.argSlot(idx)
	l.ownerIdx = idx
	l.firstOfRef = true

	if l.flags&levelFlagDoingPickups != 0 {
		// The queued request is being honored now.
		InitLogic(slot, true)
		setRefState(l, idx, refineActive)
		l.refine = refineActive
		l.reqIdx++
		l.param++
		l.arg = idx
		return StatusContinue
	}

	// A specialized-on refinement needs no callsite request.
	if l.exemplar != nil {
		ex := varAt(l.exemplar, idx)
		if ex.heart == HeartLogic && ex.Logic() {
			InitLogic(slot, true)
			setRefState(l, idx, refineActive)
			l.refine = refineActive
			l.special = idx
			l.param++
			l.arg = idx
			return StatusContinue
		}
	}

	pos := l.requestedAt(p.Name)
	switch {
	case pos < 0:
		InitBlank(slot)
		setRefState(l, idx, refineUnused)
		l.refine = refineUnused
	case pos == l.reqIdx:
		InitLogic(slot, true)
		setRefState(l, idx, refineActive)
		l.refine = refineActive
		l.reqIdx++
	default:
		// Requested out of parameter order: its args belong to a later
		// stretch of the callsite, so queue a pickup and skip for now.
		InitBlank(slot)
		setRefState(l, idx, refineSkip)
		l.refine = refineSkip
		l.pickups = append(l.pickups, idx)
	}
	l.param++
	l.arg = idx
	return StatusContinue
}

func (rt *Runtime) fulfillArg(l *Level) Status {
	idx := l.param
	p, pcell := paramAt(l.phase, idx)
	slot := l.argSlot(idx)

	switch l.refine {
	case refineUnused:
		InitBlank(slot)
		setRefState(l, idx, refineUnused)
		l.param++
		l.arg = idx
		return StatusContinue
	case refineSkip:
		InitBlank(slot)
		setRefState(l, idx, refineSkip)
		l.param++
		// Not raising the cursor here is deliberate: the slot is trash
		// until the pickup pass returns to it, and tracing stops at arg
		// unless pickups are running.
		return StatusContinue
	}

	// Specialization fills the slot without consuming the callsite.
	if l.exemplar != nil && l.special != idx {
		ex := varAt(l.exemplar, idx)
		if !ex.IsNulled() {
			if l.refine == refineRevoked {
				return l.Fail(failf(ErrKindTypeMismatch,
					"%s: specialization supplies a value to a revoked refinement argument",
					actionName(l.original)))
			}
			if !paramAccepts(pcell, ex.heart) {
				return l.Fail(failf(ErrKindTypeMismatch, "%s does not accept %v for %s",
					actionName(l.original), ex.heart, symbolText(p.Name)))
			}
			*slot = *ex
			setRefState(l, idx, l.argState())
			l.special = idx
			l.firstOfRef = false
			l.param++
			l.arg = idx
			return StatusContinue
		}
	}

	if p.Literal {
		if l.feed.AtEnd() {
			return l.Fail(rt.missingArg(l, p))
		}
		*slot = *l.feed.At()
		if slot.binding == nil && slot.heart.isWordlike() {
			slot.binding = l.feed.Specifier()
		}
		l.feed.Fetch()
		return rt.afterArgFilled(l, idx)
	}

	if l.feed.AtEnd() {
		return l.Fail(rt.missingArg(l, p))
	}

	sub := rt.pushOneStep(slot, l.feed)
	if p.Class == ParamTight {
		sub.flags |= levelFlagNoLookahead
	}
	l.cont = func(l *Level) Status {
		return rt.afterArgFilled(l, idx)
	}
	return StatusContinue
}

// argState is the sentinel an evaluated slot lands in, given the owning
// refinement's mode.
func (l *Level) argState() RefineState {
	switch l.refine {
	case refineActive:
		return refineActive
	case refineRevoked:
		return refineRevoked
	default:
		return refineArg
	}
}

func (rt *Runtime) missingArg(l *Level, p Param) *Error {
	return failf(ErrKindTypeMismatch, "%s is missing its %s argument",
		actionName(l.original), symbolText(p.Name))
}

func (rt *Runtime) afterArgFilled(l *Level, idx int) Status {
	p, pcell := paramAt(l.phase, idx)
	slot := l.argSlot(idx)
	slot.clearStale()

	// Revocation: an active refinement whose first argument evaluates to
	// none becomes revoked. Later args still consume expressions but are
	// forbidden from producing a value.
	if l.refine == refineActive && l.firstOfRef && slot.IsNulled() {
		owner := l.argSlot(l.ownerIdx)
		InitBlank(owner)
		setRefState(l, l.ownerIdx, refineRevoked)
		l.refine = refineRevoked
	} else if l.refine == refineRevoked && !slot.IsNulled() {
		return l.Fail(failf(ErrKindTypeMismatch,
			"%s: argument of revoked refinement must be none", actionName(l.original)))
	}
	l.firstOfRef = false

	state := l.argState()
	setRefState(l, idx, state)
	if state.typeChecks() && !paramAccepts(pcell, slot.heart) {
		return l.Fail(failf(ErrKindTypeMismatch, "%s does not accept %v for %s",
			actionName(l.original), slot.heart, symbolText(p.Name)))
	}

	l.arg = idx
	return rt.maybeDeferInfix(l, idx, p)
}

// maybeDeferInfix lets a deferring infix op claim the freshly-filled arg as
// its left operand. Tight-class parameters suppress it, and a call that is
// itself gathering someone else's argument passes the op upward.
func (rt *Runtime) maybeDeferInfix(l *Level, idx int, p Param) Status {
	if p.Class == ParamTight || l.flags&levelFlagFulfillingArg != 0 {
		l.param++
		return StatusContinue
	}
	if idx >= paramCount(l.phase) {
		// Last argument: the op belongs to whoever owns this call's result,
		// so leave it in the feed for the boundary above.
		l.param++
		return StatusContinue
	}
	slot := l.argSlot(idx)
	if st, taken := rt.tryDeferredInfix(l, idx, slot); taken {
		return st
	}
	l.param++
	return StatusContinue
}

func (rt *Runtime) tryDeferredInfix(l *Level, idx int, slot *Cell) (Status, bool) {
	if l.feed.AtEnd() {
		return 0, false
	}
	next := l.feed.At()
	if next.heart != HeartWord {
		return 0, false
	}
	res, err := rt.lookup(next, l.specifierFor(next))
	if err != nil || !isInfix(res.cell) {
		return 0, false
	}
	details := res.cell.Details()
	if firstParamClass(details) == ParamTight {
		// Tight ops were entitled to run inside the argument's own
		// evaluation; one that is still in the feed stays there.
		return 0, false
	}
	sym := next.Symbol()
	l.feed.Fetch()

	leftVal := *slot
	if paramCount(details) >= 1 {
		_, p1 := paramAt(details, 1)
		if !paramAccepts(p1, leftVal.heart) {
			return l.Fail(failf(ErrKindTypeMismatch, "%s does not accept %v on its left",
				symbolText(sym), leftVal.heart)), true
		}
	}

	l.deferred = slot
	l.flags |= levelFlagDeferPending

	sub := rt.pushActionLevel(slot, l.feed, details, sym)
	if paramCount(details) >= 1 {
		*sub.argSlot(1) = leftVal
		setRefState(sub, 1, refineLookback)
		sub.param = 2
		sub.arg = 1
	}
	l.cont = func(l *Level) Status {
		// Post-switch: the infix replaced the arg; chase any chained op
		// before moving to the next parameter.
		l.flags &^= levelFlagDeferPending
		l.deferred = nil
		slot := l.argSlot(idx)
		slot.clearStale()
		if st, taken := rt.tryDeferredInfix(l, idx, slot); taken {
			return st
		}
		l.param++
		return StatusContinue
	}
	return StatusContinue, true
}
