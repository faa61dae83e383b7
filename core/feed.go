package core

// A Feed supplies the values a level evaluates: either an array plus index,
// or a variadic pointer sequence the host assembled (the C va_list analogue,
// nil-terminated). The variadic path may intermix pre-evaluated values
// carried by instruction stubs, consumed and freed as the feed passes them.

type Feed struct {
	rt *Runtime

	array *Stub
	index int

	varargs []*Cell
	vIndex  int

	specifier *Stub

	// pending holds the fetched current value. For array feeds it aliases
	// the array slot; for variadic feeds it points at the supplied cell.
	pending *Cell

	held    bool // transient hold taken on the backing array
	holders int  // levels currently running this feed
}

// NewArrayFeed feeds from an array at the given position, under a specifier.
func (rt *Runtime) NewArrayFeed(arr *Stub, index int, specifier *Stub) *Feed {
	arr.assertFlavor(FlavorArray)
	f := &Feed{rt: rt, array: arr, index: index, specifier: specifier}
	f.prime()
	return f
}

// NewVariadicFeed feeds from host-supplied cell pointers. A nil entry
// terminates early, mirroring the sentinel-terminated va_list.
func (rt *Runtime) NewVariadicFeed(vals []*Cell, specifier *Stub) *Feed {
	f := &Feed{rt: rt, varargs: vals, specifier: specifier}
	f.prime()
	return f
}

func (f *Feed) prime() {
	if f.array != nil {
		if f.index < arrayLen(f.array) {
			f.pending = f.array.cellAt(f.index)
		} else {
			f.pending = nil
		}
		return
	}
	for f.vIndex < len(f.varargs) {
		v := f.varargs[f.vIndex]
		if v == nil {
			f.pending = nil
			return
		}
		// Pre-evaluated values arrive wrapped in instruction stubs; unwrap
		// and release the carrier once consumed.
		if v.heart == HeartBlock && v.node != nil && v.node.flavor == FlavorInstruction {
			inst := v.node
			f.varargs[f.vIndex] = &inst.cell
		}
		f.pending = f.varargs[f.vIndex]
		return
	}
	f.pending = nil
}

// At is the current value, nil at end of feed.
func (f *Feed) At() *Cell { return f.pending }

func (f *Feed) AtEnd() bool { return f.pending == nil }

// Fetch advances past the current value.
func (f *Feed) Fetch() {
	if f.pending == nil {
		return
	}
	if f.array != nil {
		f.index++
	} else {
		f.vIndex++
	}
	f.prime()
}

// Specifier is the binding context values from this feed resolve under.
func (f *Feed) Specifier() *Stub { return f.specifier }

// acquireHold takes the counted read-only lock on the backing array so the
// code being executed cannot be mutated underneath the level. Already
// read-only arrays need no hold. Levels sharing the feed are counted, so the
// hold lasts until the last of them drops.
func (f *Feed) acquireHold() {
	if f.array == nil {
		return
	}
	f.holders++
	if f.held || f.array.readOnlyReason() != nil {
		return
	}
	f.array.addHold()
	f.held = true
}

func (f *Feed) releaseHold() {
	if f.holders > 0 {
		f.holders--
	}
	if !f.held || f.holders > 0 {
		return
	}
	f.array.releaseHold()
	f.held = false
}

// makeInstruction wraps a pre-evaluated value for splicing into a variadic
// feed.
func (rt *Runtime) makeInstruction(v *Cell) *Cell {
	inst := rt.makeStub(FlavorInstruction, StubFlagManaged, 1)
	inst.cell = *v
	inst.used = 1
	wrapper := &Cell{heart: HeartBlock, flags: CellFlagFirstIsNode, node: inst}
	return wrapper
}
