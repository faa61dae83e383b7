package core

// Array helpers. Arrays are cell-bearing flexes; contexts, keylists and
// details reuse the same storage discipline with their own flavors.

// arrayLen is the used cell count.
func arrayLen(a *Stub) int {
	a.assertFlavor(FlavorArray, FlavorVarList, FlavorKeyList, FlavorDetails)
	return a.used
}

// appendCell copies v onto the tail. The stub may reallocate; previously
// taken cell pointers are stale afterward.
func (rt *Runtime) appendCell(a *Stub, v *Cell) error {
	at := a.used
	if err := rt.expand(a, 1); err != nil {
		return err
	}
	*a.cellAt(at) = *v
	rt.terminate(a)
	return nil
}

// newBlockArray builds an array from the given cells; the common way tests
// and the host assemble code, since the surface lexer lives outside the
// core.
func (rt *Runtime) newBlockArray(vals ...Cell) *Stub {
	a := rt.makeStub(FlavorArray, 0, len(vals))
	if len(vals) == 0 {
		rt.terminate(a)
		return a
	}
	if !a.isDynamic() {
		a.cell = vals[0]
		a.used = 1
		return a
	}
	copy(a.cells, vals)
	a.used = len(vals)
	rt.terminate(a)
	return a
}

// copyArray makes a shallow copy of the active region.
func (rt *Runtime) copyArray(a *Stub) *Stub {
	n := arrayLen(a)
	out := rt.makeStub(FlavorArray, 0, n)
	for i := 0; i < n; i++ {
		*out.cellAt(i) = *a.cellAt(i)
	}
	out.used = n
	rt.terminate(out)
	return out
}
