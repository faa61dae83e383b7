package core

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Mark-sweep over the stub graph. Marking starts from the level stack, the
// guard stack, not-yet-managed manuals, and the symbol and root tables; a
// gray stub's flavor directs which slots are traversed. Unmanaged stubs are
// never swept (the manuals stack owns their lifetime), and a held stub
// survives even when unreachable because some level's feed still reads it.

type gcState struct {
	rt   *Runtime
	gray []*Stub
}

// trackStub registers an allocated stub so the sweep can visit the white
// ones. makeStub appends; the sweep compacts.
func (rt *Runtime) trackStub(s *Stub) {
	rt.allStubs = append(rt.allStubs, s)
}

// Recycle runs one full collection. Only the trampoline calls it, at a
// signal poll, so no interior pointers into buffers are live in Go frames
// above the evaluator.
func (rt *Runtime) Recycle() int {
	gc := &gcState{rt: rt}

	if debugChecks {
		// Transient colorings by non-GC algorithms must be balanced back to
		// white before any step boundary.
		for _, s := range rt.allStubs {
			if s.isLive() && s.col != colorWhite {
				panic(diverge("stub left colored at evaluator step boundary"))
			}
		}
	}

	// Roots.
	for l := rt.top; l != nil; l = l.prior {
		gc.markLevel(l)
	}
	rt.guards.each(func(s *Stub) { gc.markStub(s) })
	rt.manuals.each(func(s *Stub) { gc.markStub(s) })
	rt.symbols.markRoots(gc)
	for _, s := range rt.roots {
		gc.markStub(s)
	}
	if rt.throw != nil {
		gc.markCell(&rt.throw.Label)
		gc.markCell(&rt.throw.Arg)
	}
	for i := range rt.ds {
		gc.markCell(&rt.ds[i])
	}
	gc.markCell(&rt.lastResult)

	gc.drain()

	// Dedup cache entries for unreachable patches go before the sweep, so
	// a recycled stub record can never satisfy a stale key.
	for _, k := range rt.useCache.Keys() {
		if v, ok := rt.useCache.Peek(k); ok {
			if u := v.(*Stub); !u.isLive() || u.col != colorBlack {
				rt.useCache.Remove(k)
			}
		}
	}

	// Sweep. Held stubs are pinned; holds outside the level stack indicate
	// an unbalanced acquire and are asserted against.
	heldOutside := mapset.NewThreadUnsafeSet[*Stub]()
	rt.inSweep = true
	live := rt.allStubs[:0]
	swept := 0
	for _, s := range rt.allStubs {
		if !s.isLive() {
			continue // already freed through kill
		}
		if s.col == colorBlack || !s.IsManaged() {
			s.col = colorWhite
			live = append(live, s)
			continue
		}
		if s.holds > 0 {
			heldOutside.Add(s)
			s.col = colorWhite
			live = append(live, s)
			continue
		}
		rt.kill(s)
		swept++
	}
	rt.allStubs = live
	rt.inSweep = false

	if heldOutside.Cardinality() > 0 {
		if debugChecks {
			panic(diverge("holds outstanding on unreachable stubs"))
		}
		rt.log.Warn("unreachable stubs pinned by holds", "count", heldOutside.Cardinality())
	}

	rt.stats.Recycles++
	rt.stats.Swept += uint64(swept)
	rt.log.Trace("recycle finished", "swept", swept, "live", len(live))
	return swept
}

func (gc *gcState) markStub(s *Stub) {
	if s == nil || !s.isLive() {
		return
	}
	if s.col != colorWhite {
		return
	}
	s.col = colorGray
	gc.gray = append(gc.gray, s)
}

func (gc *gcState) markCell(c *Cell) {
	if c == nil || c.isPoisoned() {
		return
	}
	if c.flags&CellFlagFirstIsNode != 0 {
		gc.markStub(c.node)
	}
	if c.flags&CellFlagSecondIsNode != 0 {
		gc.markStub(c.node2)
	}
	gc.markStub(c.binding)
}

func (gc *gcState) drain() {
	for len(gc.gray) > 0 {
		s := gc.gray[len(gc.gray)-1]
		gc.gray = gc.gray[:len(gc.gray)-1]
		s.col = colorBlack
		gc.traverse(s)
	}
}

// traverse follows the slots the stub's flavor declares markable. An
// inaccessible stub keeps its identity but its content is gone and is not
// scanned.
func (gc *gcState) traverse(s *Stub) {
	info := flavorTable[s.flavor]
	if info.linkMark {
		gc.markStub(s.link)
	}
	if info.miscMark {
		gc.markStub(s.misc)
	}
	if info.bonusMark {
		gc.markStub(s.bonus)
	}
	if s.IsInaccessible() {
		return
	}
	if s.flavor.isArrayFlavor() {
		for i := 0; i < s.used; i++ {
			gc.markCell(s.cellAt(i))
		}
		return
	}
	if s.flavor.isPatchFlavor() || s.flavor == FlavorInstruction {
		gc.markCell(&s.cell)
	}
}

// markLevel traces one frame of the evaluator stack. Arg slots past the
// cursor are in-progress or trash and are skipped, unless a pickup pass is
// running, in which case every slot is live.
func (gc *gcState) markLevel(l *Level) {
	gc.markCell(l.Out)
	gc.markCell(&l.spare)
	gc.markCell(&l.current)
	if l.feed != nil {
		gc.markStub(l.feed.array)
		gc.markStub(l.feed.specifier)
		for _, v := range l.feed.varargs {
			if v != nil {
				gc.markCell(v)
			}
		}
	}
	gc.markStub(l.original)
	gc.markStub(l.phase)
	gc.markStub(l.label)
	gc.markStub(l.varlist)
	gc.markStub(l.exemplar)
	for _, sym := range l.requested {
		gc.markStub(sym)
	}
	if l.args != nil {
		gc.markCell(&l.args[0]) // rootvar
		bound := l.arg
		if l.flags&levelFlagDoingPickups != 0 {
			bound = len(l.args) - 1
		}
		for i := 1; i <= bound && i < len(l.args); i++ {
			gc.markCell(&l.args[i])
		}
	}
}
