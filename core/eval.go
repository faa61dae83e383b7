package core

// The stepper: one expression unit per trampoline dispatch. A stepping level
// runs its feed dry (block evaluation) unless flagged step-only (argument
// gathering), and chases infix chains at expression boundaries.

func (rt *Runtime) evalStep(l *Level) Status {
	if l.flags&levelFlagReevaluate != 0 {
		// A dispatcher requested the spare be the next value consumed; this
		// is how EVAL works without manufacturing a synthetic array.
		l.flags &^= levelFlagReevaluate
		l.current = l.spare
		l.spare.poison()
		l.gotten = nil
		return rt.evalCurrent(l)
	}

	if l.feed.AtEnd() {
		return rt.finishStepper(l)
	}

	l.current = *l.feed.At()
	l.gotten = nil
	l.feed.Fetch()
	return rt.evalCurrent(l)
}

func (rt *Runtime) finishStepper(l *Level) Status {
	if l.Out.isStale() || l.Out.isPoisoned() {
		// Nothing was produced; stale scratch must not leak to the user.
		InitBlank(l.Out)
	}
	l.Out.clearStale()
	return StatusDone
}

// specifierFor prefers a cell's own binding over the feed's.
func (l *Level) specifierFor(c *Cell) *Stub {
	if c.binding != nil {
		return c.binding
	}
	return l.feed.Specifier()
}

func (rt *Runtime) evalCurrent(l *Level) Status {
	cur := &l.current
	switch cur.heart {
	case HeartBlank, HeartLogic, HeartInteger, HeartText, HeartBinary, HeartError, HeartFrame:
		*l.Out = *cur
		return rt.afterExpression(l)

	case HeartBlock:
		// Blocks are inert; they evaluate to themselves, picking up the
		// feed's specifier when they have none of their own.
		*l.Out = *cur
		if l.Out.binding == nil {
			l.Out.binding = l.feed.Specifier()
		}
		return rt.afterExpression(l)

	case HeartGroup:
		feed := rt.NewArrayFeed(cur.node, cur.index, l.specifierFor(cur))
		sub := rt.PushLevel(l.Out, feed)
		sub.state = stateStepping
		l.Out.setStale()
		l.cont = rt.afterExpression
		return StatusContinue

	case HeartWord:
		res, err := rt.lookup(cur, l.specifierFor(cur))
		if err != nil {
			return l.Fail(err)
		}
		val := res.cell
		l.gotten = val
		if val.heart == HeartAction {
			if isInfix(val) {
				return l.Fail(failf(ErrKindTypeMismatch,
					"infix %s has no left argument here", symbolText(cur.Symbol())))
			}
			return rt.beginAction(l, val.Details(), cur.Symbol(), nil)
		}
		if val.isPoisoned() || val.isStale() {
			return l.Fail(failf(ErrKindUnbound, "%s has no value", symbolText(cur.Symbol())))
		}
		*l.Out = *val
		l.Out.flags &^= CellFlagConst // const rides the reference, not the copy
		return rt.afterExpression(l)

	case HeartGetWord:
		res, err := rt.lookup(cur, l.specifierFor(cur))
		if err != nil {
			return l.Fail(err)
		}
		*l.Out = *res.cell
		return rt.afterExpression(l)

	case HeartSetWord:
		res, err := rt.lookupForSet(cur, l.specifierFor(cur))
		if err != nil {
			return l.Fail(err)
		}
		if res.holder.readOnlyReason() != nil {
			return l.Fail(failf(ErrKindAccessViolation, "cannot assign %s", symbolText(cur.Symbol())).
				withCause(res.holder.readOnlyReason()))
		}
		// Evaluate the next expression into the spare, then assign through
		// (holder, index): the cell pointer may go stale across the step.
		holder, index := res.holder, res.index
		sym := cur.Symbol()
		rt.pushOneStep(&l.spare, l.feed)
		l.cont = func(l *Level) Status {
			if l.spare.isStale() || l.spare.isPoisoned() {
				return l.Fail(failf(ErrKindTypeMismatch, "%s needs a value", symbolText(sym)))
			}
			var target *Cell
			if holder.flavor == FlavorLet {
				target = letVar(holder)
			} else {
				target = varAt(holder, index)
			}
			*target = l.spare
			*l.Out = l.spare
			return rt.afterExpression(l)
		}
		return StatusContinue

	case HeartAction:
		return rt.beginAction(l, cur.Details(), nil, nil)
	}
	panic(diverge("unhandled heart in evaluator"))
}

// pushOneStep makes the one-expression sub-evaluator used for argument and
// assignment positions; it shares the caller's feed.
func (rt *Runtime) pushOneStep(out *Cell, feed *Feed) *Level {
	sub := rt.PushLevel(out, feed)
	sub.state = stateStepping
	sub.flags |= levelFlagStepOnly | levelFlagFulfillingArg
	out.setStale()
	return sub
}

// beginAction pushes the fulfillment level for an action invocation.
func (rt *Runtime) beginAction(l *Level, details *Stub, label *Stub, refines []*Stub) Status {
	l.Out.setStale()
	sub := rt.pushActionLevel(l.Out, l.feed, details, label)
	if l.flags&levelFlagFulfillingArg != 0 {
		// The result is someone else's argument; deferring infix ops must
		// pass over this invocation.
		sub.flags |= levelFlagFulfillingArg
	}
	sub.requested = refines
	for _, sym := range refines {
		var w Cell
		InitWord(&w, sym)
		rt.ds = append(rt.ds, w)
	}
	l.cont = rt.afterExpression
	return StatusContinue
}

// afterExpression is the lookahead boundary. Infix ops are taken here when
// this level is entitled to them: deferring (normal left param) ops skip
// levels that are gathering someone else's argument, tight ones do not.
func (rt *Runtime) afterExpression(l *Level) Status {
	if st, taken := rt.tryInfix(l, l.Out, l.Out, l.flags&levelFlagFulfillingArg != 0); taken {
		return st
	}
	if l.flags&levelFlagReevaluate != 0 {
		return StatusContinue // a dispatcher loaded the spare; keep stepping
	}
	if l.flags&levelFlagStepOnly != 0 {
		return rt.finishStepper(l)
	}
	if l.feed.AtEnd() {
		return rt.finishStepper(l)
	}
	return StatusContinue
}

// tryInfix checks the feed for an infix word and, when this level may take
// it, pushes its invocation with left as the lookback argument, writing the
// result to out. Returns taken=false when the op defers past this level.
func (rt *Runtime) tryInfix(l *Level, left *Cell, out *Cell, gatheringForParent bool) (Status, bool) {
	if l.flags&levelFlagNoLookahead != 0 {
		return 0, false
	}
	if l.feed.AtEnd() {
		return 0, false
	}
	next := l.feed.At()
	if next.heart != HeartWord {
		return 0, false
	}
	res, err := rt.lookup(next, l.specifierFor(next))
	if err != nil {
		return 0, false // unbound lookahead is not this step's problem
	}
	if !isInfix(res.cell) {
		return 0, false
	}
	details := res.cell.Details()
	if firstParamClass(details) != ParamTight && gatheringForParent {
		// Deferring op: leave it in the feed so the call gathering this
		// argument can apply it to the completed arg.
		return 0, false
	}
	sym := next.Symbol()
	l.feed.Fetch()

	leftVal := *left
	if paramCount(details) >= 1 {
		_, p1 := paramAt(details, 1)
		if !paramAccepts(p1, leftVal.heart) {
			return l.Fail(failf(ErrKindTypeMismatch, "%s does not accept %v on its left",
				symbolText(sym), leftVal.heart)), true
		}
	}
	sub := rt.pushActionLevel(out, l.feed, details, sym)
	if paramCount(details) >= 1 {
		*sub.argSlot(1) = leftVal
		setRefState(sub, 1, refineLookback)
		sub.param = 2
		sub.arg = 1
	}
	l.cont = rt.afterExpression
	return StatusContinue, true
}
